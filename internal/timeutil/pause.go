package timeutil

import (
	"math"
	"strings"
	"time"
)

// Schedule is a worker's fixed daily schedule: up to three entry/exit pairs,
// which leaves two breaks, (Exit1, Entry2) and (Exit2, Entry3).
// Times are "HH:MM" (or "HH:MM:SS"); an empty string means "not configured".
type Schedule struct {
	Entry1 string `json:"horario_entrada_1"`
	Exit1  string `json:"horario_saida_1"`
	Entry2 string `json:"horario_entrada_2"`
	Exit2  string `json:"horario_saida_2"`
	Entry3 string `json:"horario_entrada_3"`
	Exit3  string `json:"horario_saida_3"`
}

type window struct {
	from, to string
}

func (s Schedule) breaks() []window {
	return []window{{s.Exit1, s.Entry2}, {s.Exit2, s.Entry3}}
}

func (s Schedule) shifts() []window {
	return []window{{s.Entry1, s.Exit1}, {s.Entry2, s.Exit2}, {s.Entry3, s.Exit3}}
}

// HasShifts reports whether at least one complete entry/exit pair is set.
func (s Schedule) HasShifts() bool {
	for _, w := range s.shifts() {
		if w.from != "" && w.to != "" {
			return true
		}
	}
	return false
}

// OverlapSeconds returns how many seconds of [start, end] fall inside the
// schedule's break windows. Windows are placed on the calendar day of start,
// in start's location.
func OverlapSeconds(s Schedule, start, end time.Time) int {
	if !end.After(start) {
		return 0
	}

	var total float64
	for _, w := range s.breaks() {
		from, ok := onDay(start, w.from)
		if !ok {
			continue
		}
		to, ok := onDay(start, w.to)
		if !ok || !to.After(from) {
			continue
		}

		lo := later(start, from)
		hi := earlier(end, to)
		if hi.After(lo) {
			total += hi.Sub(lo).Seconds()
		}
	}

	return int(math.Round(total))
}

// InWorkingWindow reports whether t falls inside one of the schedule's
// entry/exit pairs. A schedule without any pair never restricts.
func InWorkingWindow(s Schedule, t time.Time) bool {
	if !s.HasShifts() {
		return true
	}
	for _, w := range s.shifts() {
		from, ok := onDay(t, w.from)
		if !ok {
			continue
		}
		to, ok := onDay(t, w.to)
		if !ok {
			continue
		}
		if !t.Before(from) && t.Before(to) {
			return true
		}
	}
	return false
}

// onDay builds the instant for clock on the calendar day of ref.
func onDay(ref time.Time, clock string) (time.Time, bool) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Time{}, false
	}

	layout := ClockLayout
	if strings.Count(clock, ":") == 2 {
		layout = "15:04:05"
	}
	c, err := time.Parse(layout, clock)
	if err != nil {
		return time.Time{}, false
	}

	y, m, d := ref.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, ref.Location()), true
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
