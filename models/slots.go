package models

import "time"

// Slot is a single bookable start time as returned by the provider.
type Slot struct {
	ID         string `json:"id"`                   // time label, e.g. "14:30"
	Name       string `json:"name,omitempty"`       // provider display label
	NameSuffix string `json:"nameSuffix,omitempty"` // e.g. "PM" for 12-hour providers
}

// Label returns the provider's display label, falling back to the id.
func (s Slot) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// DaySlots holds one day's availability for a (service, worker, date) triple.
// Morning and afternoon subsets are classified by the provider.
type DaySlots struct {
	Date      time.Time `json:"date"`
	All       []Slot    `json:"all"`
	Mornings  []Slot    `json:"mornings"`
	Afternoon []Slot    `json:"afternoon"`
}

// Empty reports whether the day has no bookable slot.
func (d DaySlots) Empty() bool {
	return len(d.All) == 0
}

// SoonestResult is the outcome of a soonest-slot scan.
type SoonestResult struct {
	Found        bool      `json:"found"`
	Date         time.Time `json:"date,omitzero"`
	Slot         Slot      `json:"slot,omitzero"`
	DaysFromNow  int       `json:"daysFromNow"`
	TotalSlots   int       `json:"totalSlots"`
	Alternatives []Slot    `json:"alternativeSlots,omitempty"`
	DaysExamined int       `json:"daysExamined"`
	FailedDays   int       `json:"failedDays"`
	// Partial is set when the scan stopped early because its time budget ran out.
	Partial bool `json:"partial,omitempty"`
}

// RankedSlot is an alternative slot with its distance from the requested time.
type RankedSlot struct {
	Slot            Slot `json:"slot"`
	DistanceMinutes int  `json:"distanceMinutes"`
}

// MatchResult answers "is this exact time free on that day".
type MatchResult struct {
	Requested    string       `json:"requested"`
	Available    bool         `json:"available"`
	Slot         *Slot        `json:"slot,omitzero"`
	Alternatives []RankedSlot `json:"alternatives"`
}

// DayOverview is one row of the multi-day availability menu.
type DayOverview struct {
	Date   time.Time `json:"date"`
	Offset int       `json:"offset"`
	Slots  []Slot    `json:"slots"`
	Failed bool      `json:"failed,omitempty"`
	// Partial marks a day left unchecked because the time budget ran out.
	Partial bool `json:"partial,omitempty"`
}
