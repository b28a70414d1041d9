package assistant

import "strings"

// Intent is the closed set of actions the voice agent can call.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentGetAvailableTimes
	IntentGetSoonestAvailable
	IntentBookAppointment
	IntentCancelAppointment
	IntentSearchService
	IntentGetServicesOverview
	IntentGetOpeningHours
	IntentRequestBooking
)

var intentNames = [...]string{
	IntentUnknown:             "unknown",
	IntentGetAvailableTimes:   "get_available_times",
	IntentGetSoonestAvailable: "get_soonest_available",
	IntentBookAppointment:     "book_appointment",
	IntentCancelAppointment:   "cancel_appointment",
	IntentSearchService:       "search_service",
	IntentGetServicesOverview: "get_services_overview",
	IntentGetOpeningHours:     "get_opening_hours",
	IntentRequestBooking:      "request_booking",
}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return intentNames[IntentUnknown]
	}
	return intentNames[i]
}

// ParseIntent maps an action string to an Intent; anything unrecognized,
// including the empty string, is IntentUnknown.
func ParseIntent(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for i, name := range intentNames {
		if i != int(IntentUnknown) && name == s {
			return Intent(i)
		}
	}
	return IntentUnknown
}
