package audit

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
)

// maxFindings caps the findings kept per check; the counters keep counting.
const maxFindings = 20

// Finding is one violation or warning.
type Finding struct {
	Check  string
	Detail string
}

// Report collects audit results. It is safe for concurrent use.
type Report struct {
	mu         sync.Mutex
	Ran        []string
	Skipped    []string
	Violations int64
	Warnings   int64
	Findings   []Finding
	perCheck   map[string]int
}

func (r *Report) ran(check string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ran = append(r.Ran, check)
}

func (r *Report) skip(check string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, check)
}

func (r *Report) violation(check, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Violations++
	r.add(check, "violation: "+fmt.Sprintf(format, args...))
}

func (r *Report) warning(check, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings++
	r.add(check, "warning: "+fmt.Sprintf(format, args...))
}

func (r *Report) add(check, detail string) {
	if r.perCheck == nil {
		r.perCheck = map[string]int{}
	}
	if r.perCheck[check] >= maxFindings {
		return
	}
	r.perCheck[check]++
	r.Findings = append(r.Findings, Finding{Check: check, Detail: detail})
}

// OK reports whether no violation was found.
func (r *Report) OK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Violations == 0
}

// Print writes a human-readable summary to w.
func (r *Report) Print(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.Findings {
		if _, err := fmt.Fprintf(w, "[%s] %s\n", f.Check, f.Detail); err != nil {
			return err
		}
	}
	for _, s := range r.Skipped {
		if _, err := fmt.Fprintf(w, "[%s] skipped: artifacts not present\n", s); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Violations: %s\nWarnings: %s\n", humanize.Comma(r.Violations), humanize.Comma(r.Warnings))
	return err
}
