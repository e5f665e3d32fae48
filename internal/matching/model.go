package matching

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a participant or study id does not resolve.
var ErrNotFound = errors.New("not found")

type Role string

const (
	RoleParticipant Role = "PARTICIPANT"
	RoleResearcher  Role = "RESEARCHER"
	RoleAdmin       Role = "ADMIN"
)

type StudyStatus string

const (
	StudyDraft     StudyStatus = "DRAFT"
	StudyPublished StudyStatus = "PUBLISHED"
	StudyActive    StudyStatus = "ACTIVE"
	StudyCompleted StudyStatus = "COMPLETED"
	StudyCancelled StudyStatus = "CANCELLED"
)

// Statuses of a participation link. Only completed participations count
// towards a participant's history.
const (
	ParticipationActive     = "ACTIVE"
	ParticipationCompleted  = "COMPLETED"
	ParticipationWithdrawn  = "WITHDRAWN"
	ParticipationTerminated = "TERMINATED"
)

// ApplicationPending is the initial status of an application.
const ApplicationPending = "PENDING"

// Profile holds the declared attributes of a participant. Empty strings and
// empty lists mean the attribute is absent.
type Profile struct {
	// DateOfBirth is kept in its exchanged YYYY-MM-DD form.
	DateOfBirth  string   `json:"date_of_birth,omitempty" mapstructure:"date_of_birth"`
	Gender       string   `json:"gender,omitempty" mapstructure:"gender"`
	Location     string   `json:"location,omitempty" mapstructure:"location"`
	Bio          string   `json:"bio,omitempty" mapstructure:"bio"`
	Interests    []string `json:"interests" mapstructure:"interests"`
	Availability []string `json:"availability" mapstructure:"availability"`

	// CompletedStudies is derived from participation history, never stored.
	CompletedStudies int `json:"-" mapstructure:"-"`
}

// Account is a user of the platform. Only accounts with RoleParticipant are
// ranked against studies.
type Account struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Role    Role     `json:"role"`
	Profile *Profile `json:"participant_profile,omitempty"`
}

func (a *Account) CandidateID() string { return a.ID }

// IsParticipant reports whether the account may take part in studies.
func (a *Account) IsParticipant() bool { return a.Role == RoleParticipant }

type Researcher struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Study struct {
	ID                  string
	Title               string
	Description         string
	Institution         string
	Category            string
	Duration            string
	Compensation        float64
	Location            string
	Status              StudyStatus
	ParticipantsNeeded  int
	ParticipantsCurrent int
	Requirements        []Requirement
	Researcher          *Researcher
	CreatedAt           time.Time
}

func (s *Study) CandidateID() string { return s.ID }

// IsFull reports whether enrollment reached capacity.
func (s *Study) IsFull() bool {
	return s.ParticipantsCurrent >= s.ParticipantsNeeded
}

// RequirementLines renders requirements as human-readable lines, in order.
func (s *Study) RequirementLines() []string {
	lines := make([]string, 0, len(s.Requirements))
	for _, r := range s.Requirements {
		lines = append(lines, r.Describe())
	}
	return lines
}

// Link ties an account to a study: an application or a participation.
type Link struct {
	StudyID string `json:"study_id" mapstructure:"study_id"`
	UserID  string `json:"user_id" mapstructure:"user_id"`
	Status  string `json:"status" mapstructure:"status"`
}

// LinkFilter selects links either by user or by study.
type LinkFilter struct {
	UserID  string
	StudyID string
}

func ByUser(id string) LinkFilter  { return LinkFilter{UserID: id} }
func ByStudy(id string) LinkFilter { return LinkFilter{StudyID: id} }

// Match reports whether l is selected. A zero filter selects nothing.
func (f LinkFilter) Match(l Link) bool {
	switch {
	case f.UserID != "":
		return l.UserID == f.UserID
	case f.StudyID != "":
		return l.StudyID == f.StudyID
	default:
		return false
	}
}
