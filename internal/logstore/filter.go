package logstore

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Filter selects entries. Every set field must match (AND); within a
// set-valued field any member may match. The zero Filter matches everything.
type Filter struct {
	Levels  []Level
	Sources []string
	TaskIDs []string

	// Since and Until bound the timestamp, both inclusive. Zero means unbounded.
	Since time.Time
	Until time.Time

	// Search is matched case-insensitively against the message and the
	// JSON form of the details.
	Search string
}

// Validate reports a malformed filter.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for _, l := range f.Levels {
		if !l.Valid() {
			return fmt.Errorf("%w: unknown level %q", ErrInvalidFilter, l)
		}
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && f.Since.After(f.Until) {
		return fmt.Errorf("%w: since %s is after until %s", ErrInvalidFilter,
			f.Since.Format(time.RFC3339), f.Until.Format(time.RFC3339))
	}
	return nil
}

// IsEmpty reports whether the filter has no constraints.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Levels) == 0 && len(f.Sources) == 0 && len(f.TaskIDs) == 0 &&
		f.Since.IsZero() && f.Until.IsZero() && f.Search == "")
}

// Match reports whether the entry satisfies the filter.
func (f *Filter) Match(e Entry) bool {
	if f == nil {
		return true
	}
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, e.Level) {
		return false
	}
	if len(f.Sources) > 0 && !slices.Contains(f.Sources, e.Source) {
		return false
	}
	if len(f.TaskIDs) > 0 && (e.TaskID == "" || !slices.Contains(f.TaskIDs, e.TaskID)) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Message), needle) &&
			!strings.Contains(strings.ToLower(e.detailsJSON()), needle) {
			return false
		}
	}
	return true
}
