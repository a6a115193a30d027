package trips

import "time"

// Trip lifecycle. A trip opens in voting; once its vote count reaches
// MinVotes it flips to activated and becomes bookable. Agencies close it
// out as completed or cancelled.
const (
	StatusVoting    = "voting"
	StatusActivated = "activated"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Trip is a proposed journey owned by one agency.
type Trip struct {
	ID          string    `json:"id"`
	AgencyID    string    `json:"agency_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Destination string    `json:"destination"`
	// Price is expressed in millimes to keep arithmetic exact.
	Price     int64     `json:"price"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	MinVotes  int       `json:"min_votes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TripSummary is a trip decorated with voting state for a particular viewer.
type TripSummary struct {
	Trip
	VoteCount     int  `json:"vote_count"`
	HasVotedToday bool `json:"has_voted_today"`
}

// Vote is one traveller's vote on one trip. CastOn is the UTC calendar day,
// kept as its own column so the one-vote-per-day rule can live in a store
// constraint.
type Vote struct {
	ID     string    `json:"id"`
	TripID string    `json:"trip_id"`
	UserID string    `json:"user_id"`
	CastAt time.Time `json:"cast_at"`
	CastOn string    `json:"-"`
}

// Booking statuses. Agencies move bookings out of pending.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking reserves seats on an activated trip.
type Booking struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	UserID    string    `json:"user_id"`
	Seats     int       `json:"seats"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStats are a traveller's activity counters.
type UserStats struct {
	Votes    int `json:"votes"`
	Bookings int `json:"bookings"`
}

// PlatformStats are the operator dashboard counters for this subsystem.
type PlatformStats struct {
	Trips    int `json:"trips"`
	Bookings int `json:"bookings"`
}
