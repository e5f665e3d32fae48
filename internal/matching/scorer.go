package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	daysPerYear   = 365
	secondsPerDay = 24 * 60 * 60
)

var dateLayouts = []string{time.DateOnly, time.RFC3339}

// Scorer computes how well a participant profile fits a study, as an integer
// percentage of the factors that apply to the pair.
type Scorer struct {
	weights Weights
	now     func() time.Time
	logger  *zap.Logger
}

type ScorerOption func(*Scorer)

// WithClock sets the source of "today" used for age calculation.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScorer(logger *zap.Logger, opts ...ScorerOption) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scorer{
		weights: DefaultWeights(),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the match score in [0, 100]. It never panics; a failure
// while scoring the pair yields 0.
func (s *Scorer) Score(profile *Profile, study *Study) int {
	score, err := s.Evaluate(profile, study)
	if err != nil {
		s.logger.Warn("scoring failed, falling back to zero",
			zap.String("study_id", studyID(study)),
			zap.Error(err),
		)
		return 0
	}
	return score
}

// Evaluate is Score with the failure reported instead of swallowed.
func (s *Scorer) Evaluate(profile *Profile, study *Study) (score int, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = fmt.Errorf("scoring study %q: %v", studyID(study), r)
		}
	}()

	if study == nil {
		return 0, fmt.Errorf("study is required")
	}
	if profile == nil {
		profile = &Profile{}
	}

	var t tally
	s.age(profile, study, &t)
	s.location(profile, study, &t)
	s.gender(profile, study, &t)
	s.interests(profile, study, &t)
	s.availability(profile, &t)
	s.history(profile, &t)

	score = t.percent()
	s.logger.Debug("study scored",
		zap.String("study_id", study.ID),
		zap.Int("achieved", t.achieved),
		zap.Int("possible", t.possible),
		zap.Int("score", score),
	)
	return score, nil
}

type tally struct {
	achieved int
	possible int
}

func (t *tally) add(achieved, possible int) {
	t.achieved += achieved
	t.possible += possible
}

func (t tally) percent() int {
	if t.possible <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(t.achieved) / float64(t.possible)))
	return min(max(p, 0), 100)
}

func (s *Scorer) age(profile *Profile, study *Study, t *tally) {
	if profile.DateOfBirth == "" {
		return
	}

	dob, err := parseDate(profile.DateOfBirth)
	if err != nil {
		s.logger.Debug("ignoring malformed date of birth",
			zap.String("study_id", study.ID),
			zap.Error(err),
		)
		return
	}

	switch req := firstOfKind(study.Requirements, KindAge).(type) {
	case nil:
		t.add(s.weights.AgeNeutral, s.weights.Age)
	case AgeRequirement:
		if req.Contains(ageOn(dob, s.now())) {
			t.add(s.weights.Age, s.weights.Age)
		} else {
			t.add(0, s.weights.Age)
		}
	default:
		s.logger.Debug("ignoring malformed age requirement",
			zap.String("study_id", study.ID),
			zap.String("requirement", req.Describe()),
		)
	}
}

func (s *Scorer) location(profile *Profile, study *Study, t *tally) {
	if study.Location == "" || profile.Location == "" {
		return
	}

	studyLoc := strings.ToLower(study.Location)
	profileLoc := strings.ToLower(profile.Location)
	if strings.Contains(studyLoc, "remote") ||
		strings.Contains(studyLoc, profileLoc) ||
		strings.Contains(profileLoc, studyLoc) {
		t.add(s.weights.Location, s.weights.Location)
		return
	}
	t.add(0, s.weights.Location)
}

// gender compares literally: a requirement of "Any" only matches a profile
// whose gender is the string "Any".
func (s *Scorer) gender(profile *Profile, study *Study, t *tally) {
	if profile.Gender == "" {
		return
	}

	switch req := firstOfKind(study.Requirements, KindGender).(type) {
	case nil:
		t.add(s.weights.Gender, s.weights.Gender)
	case GenderRequirement:
		if req.Value == profile.Gender {
			t.add(s.weights.Gender, s.weights.Gender)
		} else {
			t.add(0, s.weights.Gender)
		}
	default:
		s.logger.Debug("ignoring malformed gender requirement",
			zap.String("study_id", study.ID),
			zap.String("requirement", req.Describe()),
		)
	}
}

func (s *Scorer) interests(profile *Profile, study *Study, t *tally) {
	if len(profile.Interests) == 0 || study.Category == "" {
		return
	}

	category := strings.ToLower(study.Category)
	for _, interest := range profile.Interests {
		if strings.Contains(strings.ToLower(interest), category) {
			t.add(s.weights.Interest, s.weights.Interest)
			return
		}
	}
	t.add(s.weights.InterestPartial, s.weights.Interest)
}

// availability awards a flat credit whenever any availability is declared;
// it is not compared against the study schedule.
func (s *Scorer) availability(profile *Profile, t *tally) {
	if len(profile.Availability) == 0 {
		return
	}
	t.add(s.weights.AvailabilityCredit, s.weights.Availability)
}

func (s *Scorer) history(profile *Profile, t *tally) {
	if profile.CompletedStudies > 0 {
		t.add(s.weights.History, s.weights.History)
		return
	}
	t.add(0, s.weights.History)
}

// firstOfKind returns the first requirement of the given kind. Records whose
// kind could not be read have no kind and are never returned.
func firstOfKind(reqs []Requirement, kind string) Requirement {
	for _, r := range reqs {
		if r != nil && r.Kind() == kind {
			return r
		}
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
}

// ageOn returns whole years between dob and today counted as 365-day blocks,
// flooring toward negative infinity for dates in the future.
func ageOn(dob, today time.Time) int {
	from := time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	// Unix seconds stay exact past the ~292-year range of a Duration.
	days := int((to.Unix() - from.Unix()) / secondsPerDay)
	age := days / daysPerYear
	if days%daysPerYear != 0 && days < 0 {
		age--
	}
	return age
}

func studyID(study *Study) string {
	if study == nil {
		return ""
	}
	return study.ID
}
