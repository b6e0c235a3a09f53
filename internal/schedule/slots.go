// Package schedule converts availability windows into discrete bookable time
// slots and handles the date/time normalization used for booking submission.
// Everything here is pure; callers own fetching and caching.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

// SlotInterval is the fixed granularity of bookable slots.
const SlotInterval = 30 * time.Minute

// DateLayout is the calendar-date wire format used by the booking backend.
const DateLayout = "2006-01-02"

// ClockLayout is the wall-clock wire format used by the booking backend.
const ClockLayout = "15:04"

// Window is a contiguous availability interval on one calendar day.
type Window struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	Start     string `json:"start_time"` // HH:MM
	End       string `json:"end_time"`   // HH:MM
	Available bool   `json:"is_available"`
}

// Slot is a discrete bookable unit derived from a window. Label is the
// wall-clock start ("12:30"); StartAt is the normalized UTC instant for the
// slot on its date.
type Slot struct {
	Label   string    `json:"start"`
	StartAt time.Time `json:"iso_instant"`
}

// Derive returns the bookable slots for date given a week of windows.
//
// Windows for other dates or with is_available=false contribute nothing. Each
// matching window emits a slot every SlotInterval starting at start while the
// slot time is strictly before end (half-open interval); the tail of the
// window never rounds up to an extra slot. Slots from all matching windows are
// merged and sorted ascending.
// Overlapping windows may therefore produce duplicate slot times; the upstream
// data is assumed non-overlapping and duplicates are passed through untouched.
// Windows with malformed times are skipped.
func Derive(windows []Window, date time.Time) []Slot {
	day := date.Format(DateLayout)
	slots := make([]Slot, 0, len(windows)*4)

	for _, w := range windows {
		if !w.Available || w.Date != day {
			continue
		}
		start, err := parseClock(w.Start)
		if err != nil {
			continue
		}
		end, err := parseClock(w.End)
		if err != nil {
			continue
		}
		for cur := start; cur < end; cur += SlotInterval {
			label := formatClock(cur)
			instant, err := CombineUTC(date, label)
			if err != nil {
				continue
			}
			slots = append(slots, Slot{Label: label, StartAt: instant})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartAt.Before(slots[j].StartAt)
	})
	return slots
}

// CombineUTC combines the calendar date of date (its year/month/day as the
// viewer sees them) with a literal wall-clock time into a UTC instant.
//
// The clock reading is taken as-is: "2024-06-01" + "14:00" always yields
// 2024-06-01T14:00:00Z, never shifted through the host timezone. The backend
// treats booking times as the business's local clock, so converting through
// the viewer's offset would corrupt them.
func CombineUTC(date time.Time, clock string) (time.Time, error) {
	offset, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	year, month, day := date.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(offset), nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: parse date %q: %w", s, err)
	}
	return t, nil
}

// WeekStart returns the Monday of date's week at midnight UTC. Availability is
// fetched and cached per week, so every date inside one week maps to the same
// fetch key.
func WeekStart(date time.Time) time.Time {
	year, month, day := date.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	weekday := int(midnight.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the previous Monday
	}
	return midnight.AddDate(0, 0, 1-weekday)
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("schedule: parse clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
