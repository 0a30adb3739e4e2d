package booking

import (
	"fmt"
	"slices"
	"time"
)

const (
	// WindowDays is how far ahead appointments can be booked.
	WindowDays   = 14
	SlotInterval = 30 * time.Minute
	dateLayout   = "2006-01-02"
)

// Hours are the office hours of a tenant. Start and End are hours of the
// day (End exclusive); Days uses time.Weekday numbering, 0 being Sunday.
type Hours struct {
	Start int   `yaml:"start" json:"start"`
	End   int   `yaml:"end" json:"end"`
	Days  []int `yaml:"days" json:"days"`
}

func DefaultHours() Hours {
	return Hours{Start: 9, End: 18, Days: []int{1, 2, 3, 4, 5}}
}

// Normalize fills in defaults for unset or nonsensical values.
func (h Hours) Normalize() Hours {
	d := DefaultHours()
	if h.Start < 0 || h.Start > 23 || h.End <= h.Start || h.End > 24 {
		h.Start, h.End = d.Start, d.End
	}
	if len(h.Days) == 0 {
		h.Days = d.Days
	}
	return h
}

func (h Hours) IsBusinessDay(t time.Time) bool {
	return slices.Contains(h.Days, int(t.Weekday()))
}

// Window returns the n calendar days starting at from, each at midnight.
func Window(from time.Time, n int) []time.Time {
	if n <= 0 {
		n = WindowDays
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Slots lists the half-hour slots of date. Slots whose HH:MM label appears in
// busy are marked unavailable. Non-business days have no slots.
func Slots(date time.Time, h Hours, busy []string) []Slot {
	h = h.Normalize()
	if !h.IsBusinessDay(date) {
		return nil
	}
	taken := make(map[string]struct{}, len(busy))
	for _, b := range busy {
		taken[b] = struct{}{}
	}
	var out []Slot
	for hour := h.Start; hour < h.End; hour++ {
		for _, minute := range []int{0, 30} {
			label := fmt.Sprintf("%02d:%02d", hour, minute)
			_, isBusy := taken[label]
			out = append(out, Slot{Time: label, Available: !isBusy})
		}
	}
	return out
}

// ConfirmationText is the message sent on behalf of the visitor once a slot
// is picked.
func ConfirmationText(date time.Time, slot string) string {
	return fmt.Sprintf("Agendar para el %s a las %shs", date.Format("02/01/2006"), slot)
}

func FormatDate(t time.Time) string { return t.Format(dateLayout) }

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dateLayout, s, loc)
}
