package availability

import (
	"sort"

	"bookiovoice/datetime"
	"bookiovoice/models"
)

const maxMatchAlternatives = 5

// SlotMinutes parses a slot's time as minutes since midnight. The id is tried
// first, then the display label with its suffix for 12-hour providers.
func SlotMinutes(s models.Slot) (int, bool) {
	if m, err := datetime.ParseTimeOfDay(s.ID); err == nil {
		return m, true
	}
	label := s.Label()
	if s.NameSuffix != "" {
		label += " " + s.NameSuffix
	}
	if m, err := datetime.ParseTimeOfDay(label); err == nil {
		return m, true
	}
	return 0, false
}

// CheckDesired reports whether desired is one of the day's slots. Otherwise it
// returns up to five slots closest to desired by absolute minute distance.
// Equal distances keep provider order; there is no earlier/later preference.
func CheckDesired(day models.DaySlots, desired string) (models.MatchResult, error) {
	want, err := datetime.ParseTimeOfDay(desired)
	if err != nil {
		return models.MatchResult{}, err
	}
	res := models.MatchResult{
		Requested:    datetime.FormatTimeOfDay(want),
		Alternatives: []models.RankedSlot{},
	}

	ranked := make([]models.RankedSlot, 0, len(day.All))
	for _, s := range day.All {
		m, ok := SlotMinutes(s)
		if !ok {
			continue
		}
		if m == want {
			slot := s
			res.Available = true
			res.Slot = &slot
			return res, nil
		}
		d := m - want
		if d < 0 {
			d = -d
		}
		ranked = append(ranked, models.RankedSlot{Slot: s, DistanceMinutes: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMinutes < ranked[j].DistanceMinutes
	})
	if len(ranked) > maxMatchAlternatives {
		ranked = ranked[:maxMatchAlternatives]
	}
	res.Alternatives = ranked
	return res, nil
}
