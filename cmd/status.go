package cmd

import (
	"fmt"
	"io"

	"corpus-auditor/core/storage"
	"corpus-auditor/feature/pipeline"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var statusJSON bool

// statusCmd reports pipeline progress without modifying anything
var statusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Show the state of each stage and the list counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup(args)
		if err != nil {
			return err
		}
		defer logg.Sync()

		svc := pipeline.NewService(pipeline.Options{
			Pipeline: cfg.Pipeline,
			Sort:     cfg.Sort,
			Shard:    cfg.Shard,
			FS:       storage.NewReadOnlyClient(),
			Logger:   logg,
		})
		st, err := svc.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read status: %w", err)
		}

		if statusJSON {
			return printStatusJSON(cmd.OutOrStdout(), st)
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

type statusOutput struct {
	Stages      map[string]bool `json:"stages"`
	Public      int64           `json:"public"`
	Private     int64           `json:"private"`
	Processed   int64           `json:"processed"`
	MaxObserved uint32          `json:"max_observed"`
	Gaps        int64           `json:"gaps"`
	Remaining   int64           `json:"remaining"`
	Missing     int64           `json:"missing"`
	Progress    float64         `json:"progress"`
}

func printStatusJSON(w io.Writer, st *pipeline.Status) error {
	out := statusOutput{
		Stages:      make(map[string]bool, len(st.Stages)),
		Public:      st.Public,
		Private:     st.Private,
		Processed:   st.Processed(),
		MaxObserved: st.MaxObserved,
		Gaps:        st.Gaps,
		Remaining:   st.Remaining(),
		Missing:     st.Missing,
		Progress:    st.Progress(),
	}
	for _, s := range st.Stages {
		out.Stages[s.Name] = s.Done
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func count(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.Comma(n)
}

func printStatus(w io.Writer, st *pipeline.Status) {
	for _, s := range st.Stages {
		state := "pending"
		if s.Done {
			state = "done"
		}
		if s.Detail != "" {
			state += " (" + s.Detail + ")"
		}
		fmt.Fprintf(w, "%-10s %s\n", s.Name, state)
	}
	fmt.Fprintf(w, "\npublic:       %s\n", count(st.Public))
	fmt.Fprintf(w, "private:      %s\n", count(st.Private))
	fmt.Fprintf(w, "processed:    %s\n", count(st.Processed()))
	fmt.Fprintf(w, "max observed: %s\n", humanize.Comma(int64(st.MaxObserved)))
	fmt.Fprintf(w, "gaps:         %s\n", count(st.Gaps))
	fmt.Fprintf(w, "remaining:    %s\n", count(st.Remaining()))
	fmt.Fprintf(w, "missing:      %s\n", count(st.Missing))
	fmt.Fprintf(w, "progress:     %.2f%%\n", st.Progress())
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")
	RootCmd.AddCommand(statusCmd)
}
