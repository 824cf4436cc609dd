package allocation

import "time"

// RoundStatus is the lifecycle state of an application round.
type RoundStatus string

const (
	RoundDraft      RoundStatus = "DRAFT"
	RoundInReview   RoundStatus = "IN_REVIEW"
	RoundReviewDone RoundStatus = "REVIEW_DONE"
	RoundAllocated  RoundStatus = "ALLOCATED"
	RoundHandled    RoundStatus = "HANDLED"
	RoundSent       RoundStatus = "SENT"
	RoundApproved   RoundStatus = "APPROVED"
)

// Valid reports whether the status is a known round status.
func (s RoundStatus) Valid() bool {
	switch s {
	case RoundDraft, RoundInReview, RoundReviewDone, RoundAllocated,
		RoundHandled, RoundSent, RoundApproved:
		return true
	}
	return false
}

// CanTransitionTo reports whether the round may move from s to next. An
// approved round is frozen and accepts no further status changes.
func (s RoundStatus) CanTransitionTo(next RoundStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s == RoundApproved {
		return false
	}
	switch s {
	case RoundDraft:
		return next == RoundInReview
	case RoundInReview:
		return next == RoundReviewDone || next == RoundDraft
	case RoundReviewDone:
		return next == RoundAllocated || next == RoundInReview
	case RoundAllocated:
		return next == RoundHandled || next == RoundReviewDone
	case RoundHandled:
		return next == RoundSent
	case RoundSent:
		return next == RoundApproved
	}
	return false
}

// CustomerType classifies the applicant behind an application.
type CustomerType string

const (
	CustomerBusiness   CustomerType = "BUSINESS"
	CustomerNonProfit  CustomerType = "NONPROFIT"
	CustomerIndividual CustomerType = "INDIVIDUAL"
)

// Basket is a prioritized quota bucket within a round. Applications matching
// its filters consume its share of the round's total allocation.
type Basket struct {
	ID                   string
	Name                 string
	OrderNumber          int
	PurposeIDs           []string
	AgeGroupIDs          []string
	CustomerType         CustomerType
	AllocationPercentage int
}

// Round is a time-boxed seasonal allocation process.
type Round struct {
	ID                      string
	Name                    string
	ServiceSectorID         string
	ReservationUnitIDs      []string
	ApplicationPeriodBegin  time.Time
	ApplicationPeriodEnd    time.Time
	ReservationPeriodBegin  time.Time
	ReservationPeriodEnd    time.Time
	PublicDisplayBegin      time.Time
	PublicDisplayEnd        time.Time
	Status                  RoundStatus
	Baskets                 []Basket
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Open reports whether the round currently accepts applications, and hence
// whether its reservation units are blocked for direct booking over the
// round's reservation period.
func (r Round) Open(now time.Time) bool {
	switch r.Status {
	case RoundDraft, RoundInReview:
		return !now.Before(r.ApplicationPeriodBegin) && now.Before(r.ApplicationPeriodEnd)
	}
	return false
}

// HasReservationUnit reports whether the unit participates in the round.
func (r Round) HasReservationUnit(unitID string) bool {
	for _, id := range r.ReservationUnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}

// Application is one applicant's submission to a round. Submissions keep
// their received order so equal-priority allocation stays deterministic.
type Application struct {
	ID           string
	RoundID      string
	ApplicantID  string
	CustomerType CustomerType
	ReceivedAt   time.Time
	Events       []Event
}

// Event is a recurring-time request within an application.
type Event struct {
	ID          string
	Name        string
	PurposeID   string
	AgeGroupID  string
	MinDuration time.Duration
	Schedules   []EventSchedule
}

// EventSchedule is one suitable weekly time range for an event, against an
// ordered list of candidate reservation units.
type EventSchedule struct {
	ID               string
	Day              time.Weekday
	Begin            time.Duration
	End              time.Duration
	Priority         int
	PreferredUnitIDs []string
}

// Result is the concrete assignment produced for a satisfied schedule.
type Result struct {
	ScheduleID        string
	EventID           string
	ApplicationID     string
	ReservationUnitID string
	Day               time.Weekday
	Begin             time.Duration
	End               time.Duration
	Duration          time.Duration
	BasketID          string
}
