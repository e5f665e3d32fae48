package ranking

import (
	"context"

	"github.com/spigell/study-matcher/internal/matching"
)

// Source supplies the records a ranking pass reads. Lookups of unknown ids
// return an error wrapping matching.ErrNotFound.
type Source interface {
	GetAccount(ctx context.Context, id string) (*matching.Account, error)
	GetStudy(ctx context.Context, id string) (*matching.Study, error)

	// ListActiveStudies returns ACTIVE studies in enumeration order.
	ListActiveStudies(ctx context.Context) ([]*matching.Study, error)
	// ListParticipants returns PARTICIPANT accounts in enumeration order.
	ListParticipants(ctx context.Context) ([]*matching.Account, error)

	ListApplications(ctx context.Context, filter matching.LinkFilter) ([]matching.Link, error)
	ListParticipations(ctx context.Context, filter matching.LinkFilter) ([]matching.Link, error)

	CompletedStudyCount(ctx context.Context, userID string) (int, error)
}
