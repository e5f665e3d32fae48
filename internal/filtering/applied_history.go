package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// HistoryLookup returns the ids of candidates already linked to the requester
// through an application or a participation.
type HistoryLookup func(ctx context.Context) ([]string, error)

type AppliedHistoryDeps struct {
	Lookup HistoryLookup
	Logger *zap.Logger
}

type appliedHistoryFilter[T Candidate] struct {
	toggle
	deps     *AppliedHistoryDeps
	excluded int
}

// NewAppliedHistory creates a filter that removes candidates the requester
// already applied to or participates with.
func NewAppliedHistory[T Candidate](deps *AppliedHistoryDeps) Filter[T] {
	return &appliedHistoryFilter[T]{deps: deps}
}

func (f *appliedHistoryFilter[T]) Name() string { return "applied_history" }

func (f *appliedHistoryFilter[T]) Validate() error {
	if f.deps == nil || f.deps.Lookup == nil {
		return fmt.Errorf("history lookup is required")
	}

	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	return nil
}

func (f *appliedHistoryFilter[T]) Apply(ctx context.Context, pool *Pool[T]) (*Pool[T], Step, error) {
	initial := pool.Len()

	ids, err := f.deps.Lookup(ctx)
	if err != nil {
		return pool, Step{}, fmt.Errorf("get history: %w", err)
	}

	excluded := pool.Exclude(ids)
	f.excluded = len(excluded)
	if len(excluded) > 0 {
		f.deps.Logger.Debug("excluding candidates with existing applications or participations",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", pool.Len()),
		)
	}

	return pool, Step{Initial: initial, Dropped: len(excluded), Left: pool.Len()}, nil
}

func (f *appliedHistoryFilter[T]) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"excluded": strconv.Itoa(f.excluded)},
	}
}
