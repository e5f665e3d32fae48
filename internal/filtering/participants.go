package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/matching"
)

type participantRoleFilter struct {
	toggle
	logger *zap.Logger
}

// NewParticipantRole creates a filter that removes accounts which cannot take
// part in studies.
func NewParticipantRole(logger *zap.Logger) Filter[*matching.Account] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &participantRoleFilter{logger: logger}
}

func (f *participantRoleFilter) Name() string { return "participant_role" }

func (f *participantRoleFilter) Validate() error { return nil }

func (f *participantRoleFilter) Apply(_ context.Context, pool *Pool[*matching.Account]) (*Pool[*matching.Account], Step, error) {
	initial := pool.Len()
	excluded := pool.DropFunc(func(a *matching.Account) bool { return !a.IsParticipant() })
	if len(excluded) > 0 {
		f.logger.Debug("excluding accounts without participant role",
			zap.Strings("excluded_accounts", excluded),
		)
	}

	return pool, Step{Initial: initial, Dropped: len(excluded), Left: pool.Len()}, nil
}
