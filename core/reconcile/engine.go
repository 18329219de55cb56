package reconcile

import (
	"fmt"

	"corpus-auditor/core/idstream"
)

// Complement emits every identifier in [1, max(union)] that union does not
// contain. union must be ascending; duplicates are allowed.
func Complement(union idstream.Stream, emit EmitFunc) (Summary, error) {
	var s Summary
	next := uint64(1)
	for {
		id, ok, err := union.Next()
		if err != nil {
			return s, err
		}
		if !ok {
			return s, nil
		}
		s.Seen++
		if id < s.Max {
			return s, fmt.Errorf("union stream not ascending: %d after %d", id, s.Max)
		}
		s.Max = id

		u := uint64(id)
		for ; next < u; next++ {
			if err := emit(uint32(next)); err != nil {
				return s, err
			}
			s.Emitted++
		}
		if u+1 > next {
			next = u + 1
		}
	}
}

// Difference emits each distinct identifier of expected that actual does not
// contain. Both streams must be ascending; duplicates are allowed in both.
func Difference(expected, actual idstream.Stream, emit EmitFunc) (Summary, error) {
	return walk(expected, actual, emit, false)
}

// Intersection emits each distinct identifier present in both streams.
func Intersection(expected, actual idstream.Stream, emit EmitFunc) (Summary, error) {
	return walk(expected, actual, emit, true)
}

func walk(expected, actual idstream.Stream, emit EmitFunc, wantPresent bool) (Summary, error) {
	var s Summary

	aid, aok, err := actual.Next()
	if err != nil {
		return s, err
	}

	var prev uint32
	for {
		id, ok, err := expected.Next()
		if err != nil {
			return s, err
		}
		if !ok {
			return s, nil
		}
		if s.Seen > 0 && id < prev {
			return s, fmt.Errorf("expected stream not ascending: %d after %d", id, prev)
		}
		dup := s.Seen > 0 && id == prev
		s.Seen++
		prev = id
		s.Max = id
		if dup {
			continue
		}

		for aok && aid < id {
			last := aid
			if aid, aok, err = actual.Next(); err != nil {
				return s, err
			}
			if aok && aid < last {
				return s, fmt.Errorf("actual stream not ascending: %d after %d", aid, last)
			}
		}

		present := aok && aid == id
		if present == wantPresent {
			if err := emit(id); err != nil {
				return s, err
			}
			s.Emitted++
		}
	}
}
