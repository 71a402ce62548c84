package recompute

import (
	"context"
	"fmt"

	"github.com/fortuna/laurel/internal/awards"
)

// Calculator is the part of the awards engine a job drives.
type Calculator interface {
	Calculate(ctx context.Context, awardType awards.AwardType, opts awards.Options) (map[string]int, error)
	Preview(ctx context.Context, awardType awards.AwardType, opts awards.Options) ([]awards.ScopeResult, error)
}

// Runner executes job specs against the awards engine.
type Runner struct {
	engine Calculator
}

// NewRunner constructs a runner.
func NewRunner(engine Calculator) *Runner {
	return &Runner{engine: engine}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
// Award types run in the order given; the first failure stops the job.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) error {
	if reporter != nil {
		reporter.OnJobStart(spec)
	}

	if len(spec.AwardTypes) == 0 {
		if reporter != nil {
			reporter.OnProgress("No award types to process", 0, 0)
			reporter.OnJobComplete()
		}
		return nil
	}

	total := len(spec.AwardTypes)
	for idx, awardType := range spec.AwardTypes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if reporter != nil {
			reporter.OnAwardStart(awardType, idx, total)
		}

		counts, err := r.runOne(ctx, spec, awardType)
		if err != nil {
			err = fmt.Errorf("%s: %w", awardType, err)
			if reporter != nil {
				reporter.OnJobError(err)
			}
			return err
		}

		if reporter != nil {
			reporter.OnAwardComplete(awardType, counts)
			reporter.OnProgress(fmt.Sprintf("✓ %s complete", awardType), idx+1, total)
		}
	}

	if reporter != nil {
		reporter.OnJobComplete()
	}

	return nil
}

// runOne calculates one award. Dry runs only preview and count the winners
// each season would receive.
func (r *Runner) runOne(ctx context.Context, spec JobSpec, awardType awards.AwardType) (map[string]int, error) {
	if !spec.DryRun {
		return r.engine.Calculate(ctx, awardType, spec.Options())
	}

	scopes, err := r.engine.Preview(ctx, awardType, spec.Options())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, s := range scopes {
		counts[s.Season] += len(s.Winners)
	}
	return counts, nil
}
