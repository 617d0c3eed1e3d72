package logstore

import "fmt"

// Level is the severity class of an entry.
type Level string

// Log levels.
const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Levels returns every level in display order.
func Levels() []Level {
	return []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelSuccess}
}

// Severity returns the numeric rank used for minimum-level filtering.
// Success ranks with info for sorting and display, but is never filtered;
// see Passes.
func (l Level) Severity() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo, LevelSuccess:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return -1
	}
}

// Passes reports whether an entry at level l is kept by a store whose
// minimum level is min. Success entries always pass.
func (l Level) Passes(min Level) bool {
	return l == LevelSuccess || l.Severity() >= min.Severity()
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l.Severity() >= 0
}

// ParseLevel converts a string into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown level %q", ErrInvalidFilter, s)
	}
	return l, nil
}
