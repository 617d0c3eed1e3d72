package logstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format is an export format.
type Format string

// Export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat converts a string into a Format. "txt" is accepted for text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

const csvHeader = "Timestamp,Level,Source,Task ID,Message,Details"

// Export renders the entries matching filter, newest first.
func (s *Store) Export(format Format, filter *Filter) (string, error) {
	if err := filter.Validate(); err != nil {
		return "", err
	}
	entries := s.Query(filter, 0)

	switch format {
	case FormatJSON:
		if entries == nil {
			entries = []Entry{}
		}
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil

	case FormatCSV:
		var b strings.Builder
		b.WriteString(csvHeader)
		for _, e := range entries {
			b.WriteByte('\n')
			fields := []string{
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				string(e.Level),
				e.Source,
				e.TaskID,
				e.Message,
				e.detailsJSON(),
			}
			for i, f := range fields {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(csvQuote(f))
			}
		}
		return b.String(), nil

	case FormatText:
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = e.String()
		}
		return strings.Join(lines, "\n"), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// String renders the entry as a single human-readable line, the form used
// by text export and console echo.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString("] ")
	b.WriteString(strings.ToUpper(string(e.Level)))
	b.WriteString(" [")
	b.WriteString(e.Source)
	if e.TaskID != "" {
		b.WriteByte('/')
		b.WriteString(e.TaskID)
	}
	b.WriteString("] ")
	b.WriteString(strings.ReplaceAll(e.Message, "\n", " "))
	if d := e.detailsJSON(); d != "" {
		b.WriteString(" | ")
		b.WriteString(d)
	}
	return b.String()
}

// Import merges entries from a JSON export (or a persisted Snapshot) into
// the store. Entries already present by ID are skipped. The merged history
// is ordered by timestamp, newest first, then trimmed to capacity. It
// returns the number of entries added.
func (s *Store) Import(blob []byte) (int, error) {
	entries, err := decodeEntries(blob)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.entries)+len(entries))
	for _, e := range s.entries {
		seen[e.ID] = struct{}{}
	}

	added := 0
	merged := s.entries
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
		added++
	}

	// Internal order is oldest first. Existing entries precede imported ones
	// in merged, so on equal timestamps the stable sort keeps them newer.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	s.entries = merged
	s.evictLocked()
	return added, nil
}

func decodeEntries(blob []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidImport)
	}

	var entries []Entry
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
	case '{':
		var snap Snapshot
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
		entries = snap.Entries
	default:
		return nil, fmt.Errorf("%w: not a JSON export", ErrInvalidImport)
	}

	for i := range entries {
		e := &entries[i]
		if !e.Level.Valid() {
			return nil, fmt.Errorf("%w: entry %d has unknown level %q", ErrInvalidImport, i, e.Level)
		}
		if e.Timestamp.IsZero() {
			return nil, fmt.Errorf("%w: entry %d has no timestamp", ErrInvalidImport, i)
		}
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Source == "" {
			e.Source = SourceSystem
		}
	}
	return entries, nil
}
