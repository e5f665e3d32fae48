// Package memory serves ranking records straight from a loaded dataset.
package memory

import (
	"context"
	"fmt"

	"github.com/spigell/study-matcher/internal/dataset"
	"github.com/spigell/study-matcher/internal/matching"
)

// Store is a read-only record source. Enumeration order is dataset order.
type Store struct {
	accounts       []*matching.Account
	accountsByID   map[string]*matching.Account
	studies        []*matching.Study
	studiesByID    map[string]*matching.Study
	applications   []matching.Link
	participations []matching.Link
	completed      map[string]int
}

func New(ds *dataset.Dataset) *Store {
	if ds == nil {
		ds = &dataset.Dataset{}
	}

	s := &Store{
		accounts:       ds.Accounts,
		accountsByID:   make(map[string]*matching.Account, len(ds.Accounts)),
		studies:        ds.Studies,
		studiesByID:    make(map[string]*matching.Study, len(ds.Studies)),
		applications:   ds.Applications,
		participations: ds.Participations,
		completed:      ds.CompletedStudies(),
	}
	for _, a := range ds.Accounts {
		s.accountsByID[a.ID] = a
	}
	for _, st := range ds.Studies {
		s.studiesByID[st.ID] = st
	}
	return s
}

func (s *Store) GetAccount(_ context.Context, id string) (*matching.Account, error) {
	a, ok := s.accountsByID[id]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", id, matching.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetStudy(_ context.Context, id string) (*matching.Study, error) {
	st, ok := s.studiesByID[id]
	if !ok {
		return nil, fmt.Errorf("study %q: %w", id, matching.ErrNotFound)
	}
	return st, nil
}

func (s *Store) ListActiveStudies(context.Context) ([]*matching.Study, error) {
	out := make([]*matching.Study, 0, len(s.studies))
	for _, st := range s.studies {
		if st.Status == matching.StudyActive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) ListParticipants(context.Context) ([]*matching.Account, error) {
	out := make([]*matching.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.IsParticipant() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListApplications(_ context.Context, filter matching.LinkFilter) ([]matching.Link, error) {
	return selectLinks(s.applications, filter), nil
}

func (s *Store) ListParticipations(_ context.Context, filter matching.LinkFilter) ([]matching.Link, error) {
	return selectLinks(s.participations, filter), nil
}

func (s *Store) CompletedStudyCount(_ context.Context, userID string) (int, error) {
	return s.completed[userID], nil
}

// Close is a no-op; it lets Store be used where a closable source is expected.
func (s *Store) Close() error { return nil }

func selectLinks(links []matching.Link, filter matching.LinkFilter) []matching.Link {
	var out []matching.Link
	for _, l := range links {
		if filter.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
