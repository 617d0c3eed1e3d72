package topic

import "strings"

// Topic names an event, or a pattern of events, in dot notation.
type Topic string

const (
	// Any matches exactly one segment in a pattern.
	Any = "*"
	// Rest matches zero or more segments in a pattern.
	Rest = "**"
	// Sep separates segments.
	Sep = "."
)

// String returns the topic as a string.
func (t Topic) String() string { return string(t) }

// Segments splits t on Sep. The empty topic has no segments.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Sep)
}

// IsValid reports whether t is non-empty with no empty segments.
func (t Topic) IsValid() bool {
	return t != "" && !strings.Contains(Sep+string(t)+Sep, Sep+Sep)
}

// IsPattern reports whether t contains a wildcard.
func (t Topic) IsPattern() bool {
	return strings.Contains(string(t), Any)
}

// Matches reports whether the concrete topic t is covered by pattern.
func (t Topic) Matches(pattern Topic) bool {
	if t == pattern {
		return true
	}
	return match(t.Segments(), pattern.Segments())
}

func match(name, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		pattern = pattern[1:]
		if head == Rest {
			if len(pattern) == 0 {
				return true
			}
			// Try every split point for the tail of the pattern.
			for i := 0; i <= len(name); i++ {
				if match(name[i:], pattern) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 || (head != Any && head != name[0]) {
			return false
		}
		name = name[1:]
	}
	return len(name) == 0
}

// Join builds a topic from segments.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Sep))
}
