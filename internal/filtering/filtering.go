package filtering

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Candidate is anything that can sit in a candidate pool.
type Candidate interface {
	CandidateID() string
}

// Pool is an ordered set of candidates. Removing candidates never reorders
// the remaining ones.
type Pool[T Candidate] struct {
	Items []T
}

func NewPool[T Candidate](items []T) *Pool[T] {
	return &Pool[T]{Items: slices.Clone(items)}
}

func (p *Pool[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Pool[T]) IDs() []string {
	ids := make([]string, 0, p.Len())
	for _, item := range p.Items {
		ids = append(ids, item.CandidateID())
	}
	return ids
}

// Exclude removes candidates whose id is in ids and returns the removed ids
// in pool order.
func (p *Pool[T]) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return p.DropFunc(func(item T) bool {
		_, ok := set[item.CandidateID()]
		return ok
	})
}

// DropFunc removes candidates for which drop returns true.
func (p *Pool[T]) DropFunc(drop func(T) bool) []string {
	var removed []string
	kept := p.Items[:0]
	for _, item := range p.Items {
		if drop(item) {
			removed = append(removed, item.CandidateID())
			continue
		}
		kept = append(kept, item)
	}
	clear(p.Items[len(kept):])
	p.Items = kept
	return removed
}

// Filter represents a single step applied to a candidate pool.
type Filter[T Candidate] interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, pool *Pool[T]) (*Pool[T], Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// toggle carries the enable/disable state shared by all filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// Run validates and then executes the enabled filters in order.
func Run[T Candidate](ctx context.Context, logger *zap.Logger, steps []Filter[T], pool *Pool[T]) (*Pool[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		pool = next
	}

	return pool, nil
}

// Describe returns status entries for the provided filters.
func Describe[T Candidate](steps []Filter[T]) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
