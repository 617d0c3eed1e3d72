package logstore

import (
	"sort"
	"time"
)

// HourBucket counts the entries logged during one clock hour.
type HourBucket struct {
	Start time.Time `json:"start"`
	Hour  int       `json:"hour"`
	Count int       `json:"count"`
}

// Stats summarizes the store contents.
type Stats struct {
	Total    int            `json:"total"`
	ByLevel  map[Level]int  `json:"byLevel"`
	BySource map[string]int `json:"bySource"`

	// Hourly holds 24 buckets, oldest first; the last one is the current hour.
	Hourly []HourBucket `json:"hourly"`
}

// Stats computes counts by level and source plus a 24-hour histogram
// ending at the hour containing now.
func (s *Store) Stats(now time.Time) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:    len(s.entries),
		ByLevel:  make(map[Level]int, 5),
		BySource: make(map[string]int),
		Hourly:   make([]HourBucket, 24),
	}
	for _, l := range Levels() {
		st.ByLevel[l] = 0
	}

	// Boundaries follow the wall clock of now's location, so zones with a
	// half-hour offset still get buckets that start on the hour.
	y, m, d := now.Date()
	h, loc := now.Hour(), now.Location()
	bounds := make([]time.Time, 25)
	for i := range bounds {
		bounds[i] = time.Date(y, m, d, h-23+i, 0, 0, 0, loc)
	}
	for i := range st.Hourly {
		st.Hourly[i] = HourBucket{Start: bounds[i], Hour: bounds[i].Hour()}
	}

	first, end := bounds[0], bounds[24]
	for _, e := range s.entries {
		st.ByLevel[e.Level]++
		st.BySource[e.Source]++

		ts := e.Timestamp
		if ts.Before(first) || !ts.Before(end) {
			continue
		}
		i := sort.Search(24, func(i int) bool { return ts.Before(bounds[i+1]) })
		st.Hourly[i].Count++
	}
	return st
}
