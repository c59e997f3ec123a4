package seeder

import (
	"context"
	"fmt"

	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/resolver"
	"github.com/dbsmedya/goseed/internal/store"
)

// VerificationMethod selects how a seeded plan is checked.
type VerificationMethod string

const (
	// MethodCount checks that every fixture stableId has a live document.
	MethodCount VerificationMethod = "count"
	// MethodSkip skips verification entirely.
	MethodSkip VerificationMethod = "skip"
)

// VerifyResult holds the outcome for one collection step.
type VerifyResult struct {
	Step       string
	Collection string
	Expected   int
	Found      int
	StoreCount int64 // -1 when the store cannot count
	Missing    []string
	Match      bool
}

// VerifyStats summarises a verification.
type VerifyStats struct {
	Method        VerificationMethod
	StepsVerified int
	StepsPassed   int
	StepsFailed   int
	Results       []*VerifyResult
}

// Verifier compares fixtures with the store contents.
type Verifier struct {
	store  store.Store
	loader *fixture.Loader
	method VerificationMethod
	logger *logger.Logger
}

// NewVerifier creates a verifier. An empty method defaults to count.
func NewVerifier(s store.Store, loader *fixture.Loader, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if loader == nil {
		return nil, fmt.Errorf("fixture loader is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if method == "" {
		method = MethodCount
	}
	return &Verifier{store: s, loader: loader, method: method, logger: log}, nil
}

// Verify checks every collection step of kind's plan. A mismatch is
// returned as an error alongside the full stats.
func (v *Verifier) Verify(ctx context.Context, kind string) (*VerifyStats, error) {
	stats := &VerifyStats{Method: v.method}
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return stats, nil
	}
	if v.method != MethodCount {
		return nil, fmt.Errorf("unsupported verification method: %s", v.method)
	}

	p, err := plan.ForKind(kind)
	if err != nil {
		return nil, err
	}
	res := resolver.New(v.store)
	counter, canCount := v.store.(store.Counter)

	for _, s := range p.Steps {
		if s.Globals {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("verification interrupted: %w", err)
		}

		records, err := v.loader.Load(kind, s.Fixture)
		if err != nil {
			return stats, fmt.Errorf("step %s: %w", s.Name, err)
		}
		sids := make([]string, len(records))
		for i, r := range records {
			sids[i] = r.StableID()
		}

		found, err := res.ResolveManyIDsByStableIDs(ctx, s.Collection, sids)
		if err != nil {
			return stats, fmt.Errorf("verification failed for %s: %w", s.Collection, err)
		}

		result := &VerifyResult{
			Step:       s.Name,
			Collection: s.Collection,
			Expected:   len(sids),
			Found:      len(found.IDs),
			StoreCount: -1,
			Missing:    found.Missing,
			Match:      len(found.Missing) == 0,
		}
		if canCount {
			n, err := counter.Count(ctx, s.Collection)
			if err != nil {
				return stats, err
			}
			result.StoreCount = n
		}

		stats.Results = append(stats.Results, result)
		stats.StepsVerified++
		if result.Match {
			stats.StepsPassed++
			v.logger.Debugf("Verification PASSED for %q (%d documents)", s.Collection, result.Found)
		} else {
			stats.StepsFailed++
			v.logger.Errorf("Verification FAILED for %q: %d of %d missing", s.Collection, len(result.Missing), result.Expected)
		}
	}

	v.logger.Infof("Verification complete: %d steps verified, %d passed, %d failed",
		stats.StepsVerified, stats.StepsPassed, stats.StepsFailed)

	if stats.StepsFailed > 0 {
		return stats, fmt.Errorf("verification failed: %d steps had missing documents", stats.StepsFailed)
	}
	return stats, nil
}
