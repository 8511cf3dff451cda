// Package prayer derives prayer windows and Ramadan countdowns from a daily
// timing table. The calculator is pure: everything is recomputed from the
// wall clock on demand, nothing counts down in place, so a 1-second UI timer
// accumulates no drift.
package prayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrDataUnavailable is reported when no timing table could be fetched for
// the requested day. Stale same-day data is fine; data from a previous day
// must be invalidated rather than computed against.
var ErrDataUnavailable = errors.New("prayer timings unavailable")

// Names in fixed daily order. Sunrise is carried in the table and the scan
// even though it is not a prayer, matching the upstream timing APIs.
var Order = []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

const minutesPerDay = 24 * 60

// Table is one day's timings for one location. Timings map each name in
// Order to an "HH:MM" string.
type Table struct {
	Timings  map[string]string `json:"timings"`
	Timezone string            `json:"timezone"`
	Date     string            `json:"date"` // YYYY-MM-DD
}

// Next describes the upcoming prayer.
type Next struct {
	Name             string `json:"name"`
	Time             string `json:"time"`
	Remaining        string `json:"remaining"`
	RemainingMinutes int    `json:"remaining_minutes"`
}

// Window is the derived current/next pair. Current is empty before Fajr.
type Window struct {
	Current string `json:"current_prayer,omitempty"`
	Next    Next   `json:"next_prayer"`
}

// FastingWindow is the Ramadan countdown state: counting toward Fajr
// ("suhoor") or toward Maghrib ("iftar"), with fasting progress in [0,1].
type FastingWindow struct {
	Label            string  `json:"label"` // "suhoor" or "iftar"
	Target           string  `json:"target"`
	Remaining        string  `json:"remaining"`
	RemainingMinutes int     `json:"remaining_minutes"`
	Progress         float64 `json:"progress"`
}

// ComputeWindow picks the first prayer in fixed order whose time-of-day
// exceeds now; when none remains it wraps to tomorrow's Fajr with Isha as
// the current prayer.
func ComputeWindow(t Table, now time.Time) (Window, error) {
	times, err := tableMinutes(t)
	if err != nil {
		return Window{}, err
	}
	nowMin := now.Hour()*60 + now.Minute()

	var w Window
	for i, name := range Order {
		if times[i] > nowMin {
			w.Next = nextAt(name, t.Timings[name], times[i]-nowMin)
			if i > 0 {
				w.Current = Order[i-1]
			}
			return w, nil
		}
	}

	// past Isha: wrap to tomorrow's Fajr
	w.Current = Order[len(Order)-1]
	remaining := (minutesPerDay - nowMin) + times[0]
	w.Next = nextAt(Order[0], t.Timings[Order[0]], remaining)
	return w, nil
}

// ComputeFasting derives the suhoor/iftar countdown. Before Fajr and after
// Maghrib it counts to (the next) Fajr; between the two it counts to Maghrib
// and reports fasting progress.
func ComputeFasting(t Table, now time.Time) (FastingWindow, error) {
	times, err := tableMinutes(t)
	if err != nil {
		return FastingWindow{}, err
	}
	nowMin := now.Hour()*60 + now.Minute()
	fajr := times[0]
	maghrib := times[4]

	switch {
	case nowMin < fajr:
		return FastingWindow{
			Label:            "suhoor",
			Target:           t.Timings["Fajr"],
			Remaining:        formatRemaining(fajr - nowMin),
			RemainingMinutes: fajr - nowMin,
		}, nil
	case nowMin < maghrib:
		progress := float64(nowMin-fajr) / float64(maghrib-fajr)
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
		return FastingWindow{
			Label:            "iftar",
			Target:           t.Timings["Maghrib"],
			Remaining:        formatRemaining(maghrib - nowMin),
			RemainingMinutes: maghrib - nowMin,
			Progress:         progress,
		}, nil
	default:
		remaining := (minutesPerDay - nowMin) + fajr
		return FastingWindow{
			Label:            "suhoor",
			Target:           t.Timings["Fajr"],
			Remaining:        formatRemaining(remaining),
			RemainingMinutes: remaining,
			Progress:         1,
		}, nil
	}
}

// Validate checks the table carries exactly the six expected timings and
// that it belongs to the given day. A table from a previous date is treated
// as unavailable, never silently reused across midnight.
func Validate(t Table, today string) error {
	if t.Date != "" && today != "" && t.Date != today {
		return fmt.Errorf("%w: table is for %s, today is %s", ErrDataUnavailable, t.Date, today)
	}
	_, err := tableMinutes(t)
	return err
}

func nextAt(name, at string, remaining int) Next {
	return Next{
		Name:             name,
		Time:             at,
		Remaining:        formatRemaining(remaining),
		RemainingMinutes: remaining,
	}
}

func tableMinutes(t Table) ([]int, error) {
	if len(t.Timings) == 0 {
		return nil, ErrDataUnavailable
	}
	out := make([]int, len(Order))
	for i, name := range Order {
		raw, ok := t.Timings[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrDataUnavailable, name)
		}
		m, err := parseHHMM(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad %s time %q", ErrDataUnavailable, name, raw)
		}
		out[i] = m
	}
	return out, nil
}

func parseHHMM(s string) (int, error) {
	// some providers append the timezone, e.g. "05:12 (+03)"
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("not HH:MM: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return h*60 + m, nil
}

func formatRemaining(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
