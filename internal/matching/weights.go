package matching

// Rubric points. Each factor adds its weight to the possible total only when
// its inputs are present; credits are what is awarded short of a full match.
const (
	ageWeight             = 20
	ageNeutralCredit      = 10
	locationWeight        = 15
	genderWeight          = 10
	interestWeight        = 25
	interestPartialCredit = 10
	availabilityWeight    = 20
	availabilityCredit    = 15
	historyWeight         = 10
)

const (
	// MinimumScore is the visibility threshold: lower scores are never returned.
	MinimumScore = 50
	// PageSize caps the number of matches returned by a ranking.
	PageSize = 20
)

// Weights is the scoring table used by the Scorer.
type Weights struct {
	Age                int `json:"age"`
	AgeNeutral         int `json:"age_neutral"`
	Location           int `json:"location"`
	Gender             int `json:"gender"`
	Interest           int `json:"interest"`
	InterestPartial    int `json:"interest_partial"`
	Availability       int `json:"availability"`
	AvailabilityCredit int `json:"availability_credit"`
	History            int `json:"history"`
}

// DefaultWeights returns a copy of the scoring table.
func DefaultWeights() Weights {
	return Weights{
		Age:                ageWeight,
		AgeNeutral:         ageNeutralCredit,
		Location:           locationWeight,
		Gender:             genderWeight,
		Interest:           interestWeight,
		InterestPartial:    interestPartialCredit,
		Availability:       availabilityWeight,
		AvailabilityCredit: availabilityCredit,
		History:            historyWeight,
	}
}

// Total is the possible score when every factor applies.
func (w Weights) Total() int {
	return w.Age + w.Location + w.Gender + w.Interest + w.Availability + w.History
}
