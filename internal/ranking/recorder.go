package ranking

import "time"

// Kinds of ranking passes, used as a metrics label.
const (
	KindStudies      = "studies"
	KindParticipants = "participants"
)

// Outcomes of a ranking pass.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Recorder receives measurements of ranking passes.
type Recorder interface {
	ObserveRanking(kind, status string, elapsed time.Duration)
	CandidatesScored(kind string, n int)
	ScoringFailed(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRanking(string, string, time.Duration) {}
func (nopRecorder) CandidatesScored(string, int)                 {}
func (nopRecorder) ScoringFailed(string)                         {}
