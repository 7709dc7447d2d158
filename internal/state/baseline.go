package state

import (
	"context"
	"errors"

	"github.com/leapstack-labs/layerlint/pkg/core"
)

// Diff splits current violations against a baseline by Violation.Key.
// Fresh holds violations absent from the baseline, in current order; Fixed
// holds baseline violations no longer present, in baseline order.
type Diff struct {
	Fresh []core.Violation
	Fixed []core.Violation
}

// Compare diffs current against baseline.
func Compare(baseline, current []core.Violation) Diff {
	before := make(map[string]struct{}, len(baseline))
	for _, v := range baseline {
		before[v.Key()] = struct{}{}
	}
	now := make(map[string]struct{}, len(current))
	for _, v := range current {
		now[v.Key()] = struct{}{}
	}

	d := Diff{Fresh: []core.Violation{}, Fixed: []core.Violation{}}
	for _, v := range current {
		if _, ok := before[v.Key()]; !ok {
			d.Fresh = append(d.Fresh, v)
		}
	}
	for _, v := range baseline {
		if _, ok := now[v.Key()]; !ok {
			d.Fixed = append(d.Fixed, v)
		}
	}
	return d
}

// CompareLatest diffs current against the most recent recorded run. With no
// recorded run every current violation is fresh.
func (s *SQLiteStore) CompareLatest(ctx context.Context, current []core.Violation) (Diff, *Run, error) {
	run, err := s.LatestRun(ctx)
	if errors.Is(err, ErrNoRuns) {
		return Compare(nil, current), nil, nil
	}
	if err != nil {
		return Diff{}, nil, err
	}
	baseline, err := s.RunViolations(ctx, run.ID)
	if err != nil {
		return Diff{}, nil, err
	}
	return Compare(baseline, current), run, nil
}
