package ranking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/filtering"
	"github.com/spigell/study-matcher/internal/logger"
	"github.com/spigell/study-matcher/internal/matching"
)

// Ranker runs the two read-only ranking flows on top of a Scorer. It holds no
// mutable state and is safe for concurrent use.
type Ranker struct {
	source   Source
	scorer   *matching.Scorer
	logger   *zap.Logger
	recorder Recorder
}

type Option func(*Ranker)

func WithRecorder(r Recorder) Option {
	return func(rk *Ranker) {
		if r != nil {
			rk.recorder = r
		}
	}
}

func New(source Source, scorer *matching.Scorer, logger *zap.Logger, opts ...Option) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = matching.NewScorer(logger)
	}

	r := &Ranker{
		source:   source,
		scorer:   scorer,
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scored[T any] struct {
	item  T
	score int
}

// MatchStudies ranks active studies with free places for a participant.
func (r *Ranker) MatchStudies(ctx context.Context, participantID string) (result *StudyMatches, err error) {
	started := time.Now()
	defer func() { r.observe(KindStudies, started, err) }()

	log := logger.WithRanking(r.logger, KindStudies, logger.FieldParticipant, participantID)

	account, err := r.source.GetAccount(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("get participant %q: %w", participantID, err)
	}
	if !account.IsParticipant() {
		return nil, fmt.Errorf("participant %q: %w", participantID, matching.ErrNotFound)
	}

	completed, err := r.source.CompletedStudyCount(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("count completed studies: %w", err)
	}
	profile := profileOf(account, completed)

	studies, err := r.source.ListActiveStudies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active studies: %w", err)
	}

	steps := []filtering.Filter[*matching.Study]{
		filtering.NewActiveStatus(log),
		filtering.NewAppliedHistory[*matching.Study](&filtering.AppliedHistoryDeps{
			Lookup: r.linked(matching.ByUser(participantID), func(l matching.Link) string { return l.StudyID }),
			Logger: log,
		}),
		filtering.NewCapacity(log),
	}
	pool, err := filtering.Run(ctx, log, steps, filtering.NewPool(studies))
	if err != nil {
		return nil, fmt.Errorf("filter studies: %w", err)
	}
	log.Debug("filters applied", zap.Any("filters", filtering.Describe(steps)))

	candidates := make([]scored[*matching.Study], 0, pool.Len())
	for _, study := range pool.Items {
		score, err := r.scorer.Evaluate(profile, study)
		if err != nil {
			log.Warn("scoring failed, candidate skipped",
				zap.String(logger.FieldStudy, study.ID),
				zap.Error(err),
			)
			r.recorder.ScoringFailed(KindStudies)
			score = 0
		}
		candidates = append(candidates, scored[*matching.Study]{item: study, score: score})
	}
	r.recorder.CandidatesScored(KindStudies, len(candidates))

	top, total := rank(candidates)
	result = &StudyMatches{
		ParticipantID: participantID,
		TotalMatches:  total,
		Matches:       make([]StudyMatch, 0, len(top)),
	}
	for _, c := range top {
		result.Matches = append(result.Matches, newStudyMatch(c.item, c.score))
	}

	log.Info("studies ranked",
		zap.Int("candidates", len(candidates)),
		zap.Int("total_matches", total),
		zap.Int("returned", len(result.Matches)),
	)
	return result, nil
}

// MatchParticipants ranks participants for a study. Study capacity is not
// checked here.
func (r *Ranker) MatchParticipants(ctx context.Context, studyID string) (result *ParticipantMatches, err error) {
	started := time.Now()
	defer func() { r.observe(KindParticipants, started, err) }()

	log := logger.WithRanking(r.logger, KindParticipants, logger.FieldStudy, studyID)

	study, err := r.source.GetStudy(ctx, studyID)
	if err != nil {
		return nil, fmt.Errorf("get study %q: %w", studyID, err)
	}

	accounts, err := r.source.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	steps := []filtering.Filter[*matching.Account]{
		filtering.NewParticipantRole(log),
		filtering.NewAppliedHistory[*matching.Account](&filtering.AppliedHistoryDeps{
			Lookup: r.linked(matching.ByStudy(studyID), func(l matching.Link) string { return l.UserID }),
			Logger: log,
		}),
	}
	pool, err := filtering.Run(ctx, log, steps, filtering.NewPool(accounts))
	if err != nil {
		return nil, fmt.Errorf("filter participants: %w", err)
	}
	log.Debug("filters applied", zap.Any("filters", filtering.Describe(steps)))

	candidates := make([]scored[*matching.Account], 0, pool.Len())
	for _, account := range pool.Items {
		candidates = append(candidates, scored[*matching.Account]{
			item:  account,
			score: r.scoreParticipant(ctx, log, account, study),
		})
	}
	r.recorder.CandidatesScored(KindParticipants, len(candidates))

	top, total := rank(candidates)
	result = &ParticipantMatches{
		StudyID:      studyID,
		TotalMatches: total,
		Matches:      make([]ParticipantMatch, 0, len(top)),
	}
	for _, c := range top {
		result.Matches = append(result.Matches, newParticipantMatch(c.item, c.score))
	}

	log.Info("participants ranked",
		zap.Int("candidates", len(candidates)),
		zap.Int("total_matches", total),
		zap.Int("returned", len(result.Matches)),
	)
	return result, nil
}

// scoreParticipant isolates failures to the candidate: any error yields 0.
func (r *Ranker) scoreParticipant(ctx context.Context, log *zap.Logger, account *matching.Account, study *matching.Study) int {
	completed, err := r.source.CompletedStudyCount(ctx, account.ID)
	if err != nil {
		log.Warn("counting completed studies failed, candidate skipped",
			zap.String(logger.FieldUser, account.ID),
			zap.Error(err),
		)
		r.recorder.ScoringFailed(KindParticipants)
		return 0
	}

	score, err := r.scorer.Evaluate(profileOf(account, completed), study)
	if err != nil {
		log.Warn("scoring failed, candidate skipped",
			zap.String(logger.FieldUser, account.ID),
			zap.Error(err),
		)
		r.recorder.ScoringFailed(KindParticipants)
		return 0
	}
	return score
}

// linked collects the ids on the other side of every application and
// participation selected by filter.
func (r *Ranker) linked(filter matching.LinkFilter, side func(matching.Link) string) filtering.HistoryLookup {
	return func(ctx context.Context) ([]string, error) {
		applications, err := r.source.ListApplications(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list applications: %w", err)
		}
		participations, err := r.source.ListParticipations(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list participations: %w", err)
		}

		ids := make([]string, 0, len(applications)+len(participations))
		for _, l := range applications {
			ids = append(ids, side(l))
		}
		for _, l := range participations {
			ids = append(ids, side(l))
		}
		return ids, nil
	}
}

func (r *Ranker) observe(kind string, started time.Time, err error) {
	status := StatusOK
	switch {
	case errors.Is(err, matching.ErrNotFound):
		status = StatusNotFound
	case err != nil:
		status = StatusError
	}
	r.recorder.ObserveRanking(kind, status, time.Since(started))
}

// rank keeps candidates at or above the visibility threshold, orders them by
// score descending keeping enumeration order on ties, and truncates to one
// page. total is the number of candidates that passed the threshold.
func rank[T any](candidates []scored[T]) (top []scored[T], total int) {
	passed := make([]scored[T], 0, len(candidates))
	for _, c := range candidates {
		if c.score >= matching.MinimumScore {
			passed = append(passed, c)
		}
	}

	slices.SortStableFunc(passed, func(a, b scored[T]) int {
		return b.score - a.score
	})

	total = len(passed)
	if len(passed) > matching.PageSize {
		passed = passed[:matching.PageSize]
	}
	return passed, total
}

// profileOf returns a copy of the account's profile carrying the completed
// study count. A missing profile scores as an empty one.
func profileOf(account *matching.Account, completed int) *matching.Profile {
	var profile matching.Profile
	if account.Profile != nil {
		profile = *account.Profile
	}
	profile.CompletedStudies = completed
	return &profile
}
