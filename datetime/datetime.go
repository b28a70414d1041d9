// Package datetime converts between calendar dates, the Bookio wire format and
// spoken Slovak renderings. Nothing here performs I/O.
package datetime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bookiovoice/utils/textfold"
)

// ProviderLayout is the date-with-time layout the Bookio widget API expects.
const ProviderLayout = "02.01.2006 15:04"

// ISOLayout is the calendar date layout used in webhook payloads.
const ISOLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time")
)

var weekdays = [...]string{"nedeľa", "pondelok", "utorok", "streda", "štvrtok", "piatok", "sobota"}

var weekdaysAccusative = [...]string{"nedeľu", "pondelok", "utorok", "stredu", "štvrtok", "piatok", "sobotu"}

var monthsGenitive = [...]string{
	"januára", "februára", "marca", "apríla", "mája", "júna",
	"júla", "augusta", "septembra", "októbra", "novembra", "decembra",
}

// weekday word forms as they appear after folding ("v stredu", "v nedelu").
var weekdayForms = map[string]time.Weekday{
	"pondelok": time.Monday,
	"utorok":   time.Tuesday,
	"streda":   time.Wednesday,
	"stredu":   time.Wednesday,
	"stvrtok":  time.Thursday,
	"piatok":   time.Friday,
	"sobota":   time.Saturday,
	"sobotu":   time.Saturday,
	"nedela":   time.Sunday,
	"nedelu":   time.Sunday,
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ProviderDate renders a calendar date as "DD.MM.YYYY 00:00".
func ProviderDate(d time.Time) string {
	return Midnight(d).Format(ProviderLayout)
}

// DaysBetween returns the number of calendar days from 'from' to 'to'.
func DaysBetween(from, to time.Time) int {
	a := Midnight(from)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, a.Location())
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// ParseDate understands ISO dates, Slovak dotted dates, the words dnes/zajtra/pozajtra
// and weekday names (resolved to the next such day, today included).
func ParseDate(s string, today time.Time) (time.Time, error) {
	today = Midnight(today)
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	word := textfold.Fold(raw)
	word = strings.TrimPrefix(word, "vo ")
	word = strings.TrimPrefix(word, "v ")

	switch word {
	case "dnes":
		return today, nil
	case "zajtra":
		return today.AddDate(0, 0, 1), nil
	case "pozajtra":
		return today.AddDate(0, 0, 2), nil
	}
	if wd, ok := weekdayForms[word]; ok {
		diff := (int(wd) - int(today.Weekday()) + 7) % 7
		return today.AddDate(0, 0, diff), nil
	}

	if t, err := time.ParseInLocation(ISOLayout, raw, today.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(ProviderLayout, raw, today.Location()); err == nil {
		return Midnight(t), nil
	}

	parts := strings.Split(strings.TrimSuffix(strings.ReplaceAll(raw, " ", ""), "."), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	year := today.Year()
	explicitYear := len(parts) == 3 && parts[2] != ""
	if explicitYear {
		y, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if !explicitYear && t.Before(today) {
		t = t.AddDate(1, 0, 0)
	}
	return t, nil
}

// ParseTimeOfDay returns minutes since midnight for "HH:MM", "H.MM", "HH:MM:SS",
// a bare hour, or a 12-hour value with an am/pm suffix.
func ParseTimeOfDay(s string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "o ")
	pm, am := strings.HasSuffix(v, "pm"), strings.HasSuffix(v, "am")
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(v, "pm"), "am"))
	v = strings.TrimSuffix(v, "h")
	if v == "" {
		return 0, ErrInvalidTime
	}
	if i := strings.IndexByte(v, ' '); i > 0 {
		v = v[:i]
	}
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ':' || r == '.' })
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m := 0
	if len(parts) > 1 {
		if m, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
	}
	if pm && h < 12 {
		h += 12
	}
	if am && h == 12 {
		h = 0
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// FormatTimeOfDay renders minutes since midnight as "HH:MM".
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeTime parses and re-renders a time so "9.00" and "09:00" compare equal.
func NormalizeTime(s string) (string, error) {
	m, err := ParseTimeOfDay(s)
	if err != nil {
		return "", err
	}
	return FormatTimeOfDay(m), nil
}

// WeekdayName returns the Slovak weekday name.
func WeekdayName(d time.Weekday) string {
	return weekdays[d]
}

// MonthGenitive returns the Slovak month name in the genitive case ("10. januára").
func MonthGenitive(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthsGenitive[m-1]
}

// SlovakDate renders e.g. "piatok 10. januára".
func SlovakDate(d time.Time) string {
	return fmt.Sprintf("%s %d. %s", WeekdayName(d.Weekday()), d.Day(), MonthGenitive(d.Month()))
}

// OnDay renders "v stredu 15. januára" (preposition form used in sentences).
func OnDay(d time.Time) string {
	prep := "v"
	if d.Weekday() == time.Thursday {
		prep = "vo"
	}
	return fmt.Sprintf("%s %s %d. %s", prep, weekdaysAccusative[d.Weekday()], d.Day(), MonthGenitive(d.Month()))
}

// DayPhrase renders a day offset for speech: dnes, zajtra, pozajtra or
// "o N dní" followed by the date.
func DayPhrase(offset int, d time.Time) string {
	switch {
	case offset <= 0:
		return "dnes"
	case offset == 1:
		return "zajtra"
	case offset == 2:
		return "pozajtra, " + OnDay(d)
	case offset <= 4:
		return fmt.Sprintf("o %d dni, %s", offset, OnDay(d))
	default:
		return fmt.Sprintf("o %d dní, %s", offset, OnDay(d))
	}
}
