package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/matching"
)

type activeStatusFilter struct {
	toggle
	logger *zap.Logger
}

// NewActiveStatus creates a filter that keeps only studies open for
// enrollment.
func NewActiveStatus(logger *zap.Logger) Filter[*matching.Study] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &activeStatusFilter{logger: logger}
}

func (f *activeStatusFilter) Name() string { return "active_status" }

func (f *activeStatusFilter) Validate() error { return nil }

func (f *activeStatusFilter) Apply(_ context.Context, pool *Pool[*matching.Study]) (*Pool[*matching.Study], Step, error) {
	initial := pool.Len()
	excluded := pool.DropFunc(func(s *matching.Study) bool {
		return s.Status != matching.StudyActive
	})
	if len(excluded) > 0 {
		f.logger.Debug("excluding studies that are not active",
			zap.Strings("excluded_studies", excluded),
		)
	}

	return pool, Step{Initial: initial, Dropped: len(excluded), Left: pool.Len()}, nil
}

type capacityFilter struct {
	toggle
	logger *zap.Logger
}

// NewCapacity creates a filter that removes studies with no free places.
func NewCapacity(logger *zap.Logger) Filter[*matching.Study] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &capacityFilter{logger: logger}
}

func (f *capacityFilter) Name() string { return "capacity" }

func (f *capacityFilter) Validate() error { return nil }

func (f *capacityFilter) Apply(_ context.Context, pool *Pool[*matching.Study]) (*Pool[*matching.Study], Step, error) {
	initial := pool.Len()
	excluded := pool.DropFunc(func(s *matching.Study) bool { return s.IsFull() })
	if len(excluded) > 0 {
		f.logger.Debug("excluding full studies",
			zap.Strings("excluded_studies", excluded),
			zap.Int("studies_left", pool.Len()),
		)
	}

	return pool, Step{Initial: initial, Dropped: len(excluded), Left: pool.Len()}, nil
}
