package domain

import "time"

// KickoffLayout is the canonical local representation of a kickoff time.
const KickoffLayout = "2006-01-02 15:04:05"

// PendingOpponent stands in for an opponent the fixtures source has not
// published yet.
const PendingOpponent = "Pendiente"

type Match struct {
	ID          int64      `json:"id"`
	APIID       *int64     `json:"apiId,omitempty"`
	Round       *int       `json:"round,omitempty"`
	Opponent    string     `json:"opponent"`
	Kickoff     *time.Time `json:"kickoff,omitempty"`
	Home        bool       `json:"home"`
	Competition string     `json:"competition,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	HomeTeam    string     `json:"homeTeam"`
	AwayTeam    string     `json:"awayTeam"`
	HomeLogo    string     `json:"homeLogo,omitempty"`
	AwayLogo    string     `json:"awayLogo,omitempty"`
}

// Scheduled reports whether the kickoff time is known.
func (m Match) Scheduled() bool { return m.Kickoff != nil }

// KickoffLocal formats the kickoff in loc, or returns "" when unscheduled.
func (m Match) KickoffLocal(loc *time.Location) string {
	if m.Kickoff == nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return m.Kickoff.In(loc).Format(KickoffLayout)
}

// MatchInput carries the editable fields of a manually managed match.
type MatchInput struct {
	Round       *int       `json:"round"`
	Opponent    string     `json:"opponent"`
	Kickoff     *time.Time `json:"kickoff"`
	Home        bool       `json:"home"`
	Competition string     `json:"competition"`
	Venue       string     `json:"venue"`
}

// MatchSummary is a row of the upcoming matches list.
type MatchSummary struct {
	Match
	AvailableSeats   int `json:"availableSeats"`
	AvailableParking int `json:"availableParking"`
}

// MatchDetail is a match with its assigned and free inventory.
type MatchDetail struct {
	Match            Match            `json:"match"`
	SeatAssignments  []AssignmentView `json:"seatAssignments"`
	SlotAssignments  []AssignmentView `json:"parkingAssignments"`
	AvailableSeats   []Seat           `json:"availableSeats"`
	AvailableParking []ParkingSlot    `json:"availableParking"`
}
