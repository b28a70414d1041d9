// Package voice turns availability and catalog results into Slovak sentences for
// text-to-speech. Output is deterministic for a given input.
package voice

import (
	"fmt"
	"strings"
	"time"

	"bookiovoice/datetime"
	"bookiovoice/models"
)

// maxSpokenItems caps lists read aloud; longer lists get "napríklad".
const maxSpokenItems = 5

// DayHours is one line of the opening-hours answer.
type DayHours struct {
	Day   string `json:"day"`
	Hours string `json:"hours"` // empty means closed
}

// Composer holds the salon details some sentences mention.
type Composer struct {
	SalonName string
	Phone     string
}

// JoinTimes joins spoken items: "X", "X a Y", "X, Y a Z".
func JoinTimes(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " a " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " a " + items[len(items)-1]
	}
}

// SlotCount renders a count with the matching noun form:
// 1 voľný termín, 2-4 voľné termíny, otherwise voľných termínov.
func SlotCount(n int) string {
	switch {
	case n == 1:
		return "1 voľný termín"
	case n >= 2 && n <= 4:
		return fmt.Sprintf("%d voľné termíny", n)
	default:
		return fmt.Sprintf("%d voľných termínov", n)
	}
}

// SpokenTime drops the leading zero: "09:00" is read as "9:00".
func SpokenTime(s models.Slot) string {
	label := strings.TrimSpace(s.Label())
	if s.NameSuffix != "" {
		label += " " + s.NameSuffix
	}
	if len(label) == 5 && label[0] == '0' && label[2] == ':' {
		return label[1:]
	}
	return label
}

func spokenTimes(slots []models.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, SpokenTime(s))
	}
	return out
}

func spokenClock(hhmm string) string {
	if len(hhmm) == 5 && hhmm[0] == '0' {
		return hhmm[1:]
	}
	return hhmm
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func withinDays(n int) string {
	if n <= 1 {
		return "dnes"
	}
	return fmt.Sprintf("v najbližších %d dňoch", n)
}

// shortDay is "dnes", "zajtra" or "v piatok 10. januára".
func shortDay(offset int, d time.Time) string {
	switch offset {
	case 0:
		return "dnes"
	case 1:
		return "zajtra"
	default:
		return datetime.OnDay(d)
	}
}

// Soonest describes the first free slot and up to three more that day.
func (c Composer) Soonest(service string, r models.SoonestResult) string {
	if !r.Found {
		return c.NoAvailability(service, r.DaysExamined, r.Partial)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Najbližší voľný termín na %s je %s o %s.",
		service, datetime.DayPhrase(r.DaysFromNow, r.Date), SpokenTime(r.Slot))
	switch len(r.Alternatives) {
	case 0:
	case 1:
		fmt.Fprintf(&b, " V ten deň je voľný ešte čas %s.", SpokenTime(r.Alternatives[0]))
	default:
		fmt.Fprintf(&b, " V ten deň sú voľné aj časy %s.", JoinTimes(spokenTimes(r.Alternatives)))
	}
	b.WriteString(" Vyhovuje vám niektorý z nich?")
	return b.String()
}

// NoAvailability is the "nothing free" answer. partial means the scan ran out
// of time before covering the whole window.
func (c Composer) NoAvailability(service string, days int, partial bool) string {
	if partial && days == 0 {
		return fmt.Sprintf("Kalendár sa mi teraz nepodarilo prezrieť, takže voľný termín na %s vám zatiaľ neviem povedať. Skúste prosím konkrétny deň alebo nám zavolajte na číslo %s.",
			service, c.Phone)
	}
	if partial {
		return fmt.Sprintf("Kalendár sa mi nepodarilo prezrieť celý a %s som na %s voľný termín nenašla. Skúste prosím konkrétny deň alebo nám zavolajte na číslo %s.",
			withinDays(days), service, c.Phone)
	}
	return fmt.Sprintf("Na %s som %s nenašla žiadny voľný termín. Môžem skúsiť iný deň, alebo nám zavolajte na číslo %s.",
		service, withinDays(days), c.Phone)
}

// DesiredSlot answers whether a requested time on a given day is free.
func (c Composer) DesiredSlot(date time.Time, r models.MatchResult) string {
	when := datetime.OnDay(date)
	if r.Available {
		return fmt.Sprintf("Áno, %s o %s je voľné. Chcete si tento termín rezervovať?", when, spokenClock(r.Requested))
	}
	if len(r.Alternatives) == 0 {
		return fmt.Sprintf("%s už nemáme žiadny voľný termín. Chcete, aby som našla najbližší voľný deň?", capitalize(when))
	}
	alts := make([]models.Slot, 0, len(r.Alternatives))
	for _, a := range r.Alternatives {
		alts = append(alts, a.Slot)
	}
	lead := fmt.Sprintf("O %s %s bohužiaľ voľné nie je.", spokenClock(r.Requested), when)
	if len(alts) == 1 {
		return fmt.Sprintf("%s Najbližší voľný čas v ten deň je %s. Vyhovuje vám?", lead, SpokenTime(alts[0]))
	}
	return fmt.Sprintf("%s Najbližšie voľné časy v ten deň sú %s. Ktorý vám vyhovuje?", lead, JoinTimes(spokenTimes(alts)))
}

// DayTimes lists the free times of one day.
func (c Composer) DayTimes(date time.Time, day models.DaySlots) string {
	when := datetime.OnDay(date)
	n := len(day.All)
	switch {
	case n == 0:
		return fmt.Sprintf("%s už nemáme žiadny voľný termín.", capitalize(when))
	case n == 1:
		return fmt.Sprintf("%s máme 1 voľný termín, o %s. Chcete si ho rezervovať?", capitalize(when), SpokenTime(day.All[0]))
	case n <= maxSpokenItems:
		return fmt.Sprintf("%s máme %s: %s. Ktorý vám vyhovuje?", capitalize(when), SlotCount(n), JoinTimes(spokenTimes(day.All)))
	default:
		return fmt.Sprintf("%s máme %s, napríklad %s. Ktorý čas vám vyhovuje?",
			capitalize(when), SlotCount(n), JoinTimes(spokenTimes(day.All[:maxSpokenItems])))
	}
}

// Overview summarizes how many slots each upcoming day has.
func (c Composer) Overview(service string, rows []models.DayOverview) string {
	var parts []string
	var first *models.DayOverview
	checked := 0
	for i := range rows {
		r := rows[i]
		if !r.Partial {
			checked++
		}
		if len(r.Slots) == 0 {
			continue
		}
		if first == nil {
			first = &rows[i]
		}
		parts = append(parts, fmt.Sprintf("%s %s", shortDay(r.Offset, r.Date), SlotCount(len(r.Slots))))
	}
	if len(parts) == 0 {
		return c.NoAvailability(service, checked, checked < len(rows))
	}
	return fmt.Sprintf("Na %s máme %s. Najskôr %s o %s. Ktorý deň vám vyhovuje?",
		service, JoinTimes(parts), shortDay(first.Offset, first.Date), SpokenTime(first.Slots[0]))
}

// ServiceFound describes the services matching a search.
func (c Composer) ServiceFound(services []models.Service) string {
	switch len(services) {
	case 0:
		return "Takú službu som v našej ponuke nenašla. Môžete ju prosím opísať inými slovami?"
	case 1:
		return describeService(services[0])
	}
	titles := make([]string, 0, maxSpokenItems)
	for _, s := range services[:min(len(services), maxSpokenItems)] {
		titles = append(titles, s.Title)
	}
	if len(services) == 2 {
		return fmt.Sprintf("Našla som dve služby: %s. Ktorú z nich máte na mysli?", JoinTimes(titles))
	}
	return fmt.Sprintf("Našla som viac služieb, napríklad %s. Ktorú z nich máte na mysli?", JoinTimes(titles))
}

func describeService(s models.Service) string {
	var b strings.Builder
	b.WriteString(s.Title)
	switch {
	case s.Price != "" && s.DurationString != "":
		fmt.Fprintf(&b, " stojí %s a trvá %s.", s.Price, s.DurationString)
	case s.Price != "":
		fmt.Fprintf(&b, " stojí %s.", s.Price)
	case s.DurationString != "":
		fmt.Fprintf(&b, " trvá %s.", s.DurationString)
	default:
		b.WriteString(" je v našej ponuke.")
	}
	b.WriteString(" Chcete nájsť voľný termín?")
	return b.String()
}

// ServicesOverview lists the category titles.
func (c Composer) ServicesOverview(categories []models.Category) string {
	if len(categories) == 0 {
		return fmt.Sprintf("Zoznam služieb sa mi teraz nepodarilo načítať. Zavolajte nám prosím na číslo %s.", c.Phone)
	}
	titles := make([]string, 0, len(categories))
	for _, cat := range categories {
		titles = append(titles, cat.Title)
	}
	if c.SalonName != "" {
		return fmt.Sprintf("V %s ponúkame %s. O ktorú oblasť máte záujem?", c.SalonName, JoinTimes(titles))
	}
	return fmt.Sprintf("Ponúkame %s. O ktorú oblasť máte záujem?", JoinTimes(titles))
}

// OpeningHours reads the configured week.
func (c Composer) OpeningHours(week []DayHours) string {
	if len(week) == 0 {
		return fmt.Sprintf("Otváracie hodiny vám rada povie kolegyňa na čísle %s.", c.Phone)
	}
	lines := make([]string, 0, len(week))
	for _, d := range week {
		if strings.TrimSpace(d.Hours) == "" {
			lines = append(lines, d.Day+" zatvorené")
			continue
		}
		lines = append(lines, d.Day+" "+d.Hours)
	}
	return fmt.Sprintf("Otvorené máme %s.", JoinTimes(lines))
}

// BookingConfirmed is read after a successful reservation.
func (c Composer) BookingConfirmed(name, service string, date time.Time, hhmm string) string {
	return fmt.Sprintf("Hotovo, %s. Rezervovala som vám %s %s o %s. Potvrdenie vám príde v SMS alebo e-maile. Tešíme sa na vás.",
		name, service, datetime.OnDay(date), spokenClock(hhmm))
}

// BookingFailed is read when the provider refused or failed the reservation.
func (c Composer) BookingFailed() string {
	return fmt.Sprintf("Rezerváciu sa mi nepodarilo dokončiť. Skúste to prosím znova alebo nám zavolajte na číslo %s.", c.Phone)
}

// BookingRequested confirms a staff call-back request.
func (c Composer) BookingRequested(name string) string {
	return fmt.Sprintf("Ďakujem, %s. Vašu požiadavku som odovzdala kolegyniam a čoskoro sa vám ozveme na uvedené číslo.", name)
}

// CancelInfo explains how to cancel; the widget cannot cancel over the phone.
func (c Composer) CancelInfo() string {
	return fmt.Sprintf("Rezerváciu vám žiaľ cez tento hovor zrušiť neviem. Zavolajte prosím na číslo %s alebo použite odkaz v potvrdzovacom e-maile.", c.Phone)
}

// MissingField asks for the first missing piece of information.
func (c Composer) MissingField(field string) string {
	switch field {
	case "service":
		return "Akú službu si želáte?"
	case "date":
		return "Na ktorý deň by ste chceli prísť?"
	case "time":
		return "Na koľkú hodinu by vám to vyhovovalo?"
	case "name":
		return "Na aké meno mám rezerváciu zapísať?"
	case "phone":
		return "Povedzte mi prosím vaše telefónne číslo."
	default:
		return "Chýba mi ešte jeden údaj. Môžete mi ho prosím zopakovať?"
	}
}

// InvalidField asks the caller to repeat a value that could not be understood.
func (c Composer) InvalidField(field string) string {
	switch field {
	case "date":
		return "Tomuto dátumu som nerozumela. Povedzte mi ho prosím napríklad ako pätnásteho januára alebo zajtra."
	case "time":
		return "Tomuto času som nerozumela. Povedzte mi ho prosím napríklad ako desať tridsať."
	case "phone":
		return "Telefónne číslo sa mi nepodarilo zachytiť. Zopakujete mi ho prosím?"
	case "past":
		return "Tento deň už bol. Na ktorý iný deň by ste chceli prísť?"
	default:
		return "Tomu som nerozumela. Môžete to prosím zopakovať?"
	}
}

// UnknownService is read when the named service is not in the catalog.
func (c Composer) UnknownService(name string) string {
	return fmt.Sprintf("Službu %s som v ponuke nenašla. Môžete ju prosím opísať inými slovami?", name)
}

// ProviderDown is read when every upstream call failed.
func (c Composer) ProviderDown(permanent bool) string {
	if permanent {
		return fmt.Sprintf("Pre túto službu sa mi nepodarilo načítať termíny. Zavolajte nám prosím na číslo %s a kolegyňa vám pomôže.", c.Phone)
	}
	return fmt.Sprintf("Rezervačný systém momentálne neodpovedá. Skúste to prosím o chvíľu znova alebo nám zavolajte na číslo %s.", c.Phone)
}

// Unrecognized is read for actions the service does not know.
func (c Composer) Unrecognized() string {
	return "Prepáčte, s týmto vám zatiaľ neviem pomôcť. Môžem vyhľadať službu, nájsť voľný termín alebo vytvoriť rezerváciu."
}

// Apology is the last-resort answer when something unexpected broke.
func (c Composer) Apology() string {
	return fmt.Sprintf("Prepáčte, nastala technická chyba. Skúste to prosím o chvíľu znova alebo nám zavolajte na číslo %s.", c.Phone)
}

// RepeatRequest is read when the request body could not be parsed.
func (c Composer) RepeatRequest() string {
	return "Prepáčte, požiadavke som nerozumela. Môžete ju prosím zopakovať?"
}
