package ranking

import (
	"time"

	"github.com/spigell/study-matcher/internal/matching"
)

// StudyMatch is a study offered to a participant together with its score.
type StudyMatch struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Institution         string               `json:"institution"`
	Category            string               `json:"category"`
	Duration            string               `json:"duration"`
	Compensation        float64              `json:"compensation"`
	Location            string               `json:"location"`
	ParticipantsNeeded  int                  `json:"participants_needed"`
	ParticipantsCurrent int                  `json:"participants_current"`
	Requirements        []string             `json:"requirements"`
	Researcher          *matching.Researcher `json:"researcher,omitempty"`
	MatchScore          int                  `json:"matchScore"`
	CreatedAt           time.Time            `json:"created_at"`
}

type StudyMatches struct {
	ParticipantID string       `json:"participant_id"`
	TotalMatches  int          `json:"total_matches"`
	Matches       []StudyMatch `json:"matches"`
}

// ParticipantMatch is a participant proposed for a study together with its
// score.
type ParticipantMatch struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Profile    *matching.Profile `json:"participant_profile"`
	MatchScore int               `json:"match_score"`
}

type ParticipantMatches struct {
	StudyID      string             `json:"study_id"`
	TotalMatches int                `json:"total_matches"`
	Matches      []ParticipantMatch `json:"matches"`
}

func newStudyMatch(s *matching.Study, score int) StudyMatch {
	return StudyMatch{
		ID:                  s.ID,
		Title:               s.Title,
		Description:         s.Description,
		Institution:         s.Institution,
		Category:            s.Category,
		Duration:            s.Duration,
		Compensation:        s.Compensation,
		Location:            s.Location,
		ParticipantsNeeded:  s.ParticipantsNeeded,
		ParticipantsCurrent: s.ParticipantsCurrent,
		Requirements:        s.RequirementLines(),
		Researcher:          s.Researcher,
		MatchScore:          score,
		CreatedAt:           s.CreatedAt,
	}
}

func newParticipantMatch(a *matching.Account, score int) ParticipantMatch {
	return ParticipantMatch{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Profile:    a.Profile,
		MatchScore: score,
	}
}
