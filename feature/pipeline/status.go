package pipeline

import (
	"context"
	"fmt"

	"corpus-auditor/core/idstream"
	"corpus-auditor/core/storage"
	"corpus-auditor/core/utils"
	"corpus-auditor/feature/inventory"
)

// StageStatus is the state of one stage.
type StageStatus struct {
	Name   string
	Done   bool
	Detail string
}

// Status summarizes the pipeline's progress. Counts are -1 when the
// artifact they are read from does not exist yet.
type Status struct {
	Stages      []StageStatus
	Public      int64
	Private     int64
	MaxObserved uint32
	Gaps        int64
	Missing     int64
}

// Processed is the number of identifiers recorded across both lists.
func (s *Status) Processed() int64 {
	if s.Public < 0 || s.Private < 0 {
		return -1
	}
	return s.Public + s.Private
}

// Progress returns the share of [1, MaxObserved] covered by the lists, in percent.
func (s *Status) Progress() float64 {
	if s.Gaps < 0 {
		return utils.Percent(s.Processed(), int64(s.MaxObserved))
	}
	return utils.Percent(int64(s.MaxObserved)-s.Gaps, int64(s.MaxObserved))
}

// Remaining is the number of identifiers in [1, MaxObserved] that neither
// list records. It reads the gap count when extracted and otherwise
// estimates it from the list sizes. It is -1 when neither is known.
func (s *Status) Remaining() int64 {
	if s.Gaps >= 0 {
		return s.Gaps
	}
	processed := s.Processed()
	if processed < 0 {
		return -1
	}
	return max(int64(s.MaxObserved)-processed, 0)
}

// Status inspects the artifacts without modifying them.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	p := s.opts.Pipeline
	st := &Status{Public: -1, Private: -1, Gaps: -1, Missing: -1}

	for _, stage := range s.manager.Stages() {
		ss := StageStatus{Name: stage.Name()}
		if stage.Name() == inventory.Name {
			inv, err := inventory.Check(s.opts.FS, p.Dir, p.CorpusPrefix, p.PublicList, p.PrivateList)
			if err != nil {
				ss.Detail = err.Error()
			} else {
				ss.Done = true
				ss.Detail = fmt.Sprintf("%d corpus files", len(inv.CorpusFiles))
			}
		} else {
			done, err := stage.Done(ctx)
			if err != nil {
				return nil, err
			}
			ss.Done = done
		}
		st.Stages = append(st.Stages, ss)
	}

	var err error
	if st.Public, st.MaxObserved, err = s.packedStat(p.Path(p.PublicPacked), st.MaxObserved); err != nil {
		return nil, err
	}
	if st.Private, st.MaxObserved, err = s.packedStat(p.Path(p.PrivatePacked), st.MaxObserved); err != nil {
		return nil, err
	}
	if st.Gaps, err = s.countLines(p.Path(p.GapFile)); err != nil {
		return nil, err
	}
	if st.Missing, err = s.countLines(p.Path(p.MissingFile)); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) packedStat(path string, maxSoFar uint32) (int64, uint32, error) {
	ok, err := storage.Exists(s.opts.FS, path)
	if err != nil || !ok {
		return -1, maxSoFar, err
	}
	n, last, err := idstream.PackedStat(s.opts.FS, path)
	if err != nil {
		return -1, maxSoFar, err
	}
	return n, max(maxSoFar, last), nil
}

func (s *Service) countLines(path string) (int64, error) {
	ok, err := storage.Exists(s.opts.FS, path)
	if err != nil || !ok {
		return -1, err
	}
	r, err := idstream.OpenText(s.opts.FS, path)
	if err != nil {
		return -1, err
	}
	defer r.Close()

	var n int64
	for {
		_, ok, err := r.Next()
		if err != nil {
			return -1, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}
