package logstore

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by New when the config leaves a field unset.
const (
	DefaultMaxEntries       = 1000
	DefaultPersistCount     = 100
	DefaultAutoSaveInterval = 30 * time.Second
)

// Config configures a Store.
type Config struct {
	// MaxEntries bounds the number of retained entries.
	MaxEntries int

	// MinLevel drops entries of lower severity at write time.
	MinLevel Level

	// PersistCount is how many of the newest entries a snapshot keeps.
	PersistCount int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries:   DefaultMaxEntries,
		MinLevel:     LevelInfo,
		PersistCount: DefaultPersistCount,
	}
}

// Option configures optional Store collaborators.
type Option func(*Store)

// WithPersister sets the snapshot backend.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithConsole echoes every accepted entry to w as a text line.
func WithConsole(w io.Writer) Option {
	return func(s *Store) {
		s.console = w
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a bounded in-memory log.
//
// Entries are kept oldest first internally; every read returns them newest
// first.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	maxN     int
	minLevel Level
	persistN int

	hooksMu sync.RWMutex
	hooks   map[uint64]func(Entry)
	hookSeq uint64

	console   io.Writer
	consoleMu sync.Mutex

	now       func() time.Time
	persister Persister

	persistMu       sync.Mutex
	persistFailures int
	lastPersistErr  error

	autoSaveMu   sync.Mutex
	autoSaveStop chan struct{}
	autoSaveDone chan struct{}

	closeOnce sync.Once
}

// New creates a Store.
func New(cfg Config, opts ...Option) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if !cfg.MinLevel.Valid() {
		cfg.MinLevel = LevelInfo
	}
	if cfg.PersistCount <= 0 {
		cfg.PersistCount = DefaultPersistCount
	}

	s := &Store{
		maxN:     cfg.MaxEntries,
		minLevel: cfg.MinLevel,
		persistN: cfg.PersistCount,
		hooks:    make(map[uint64]func(Entry)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records an entry. It returns the stored entry and true, or a zero
// Entry and false when the level is below the minimum (or unknown).
func (s *Store) Append(level Level, message, source string, details map[string]any, taskID string) (Entry, bool) {
	if !level.Valid() {
		return Entry{}, false
	}

	s.mu.Lock()
	if !level.Passes(s.minLevel) {
		s.mu.Unlock()
		return Entry{}, false
	}

	if source == "" {
		source = SourceSystem
	}
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: s.now(),
		Level:     level,
		Message:   message,
		Source:    source,
		Details:   cloneDetails(details),
		TaskID:    taskID,
	}
	s.entries = append(s.entries, e)
	s.evictLocked()
	s.mu.Unlock()

	s.echo(e)
	s.notify(e)
	return e.clone(), true
}

// Debug appends a debug entry.
func (s *Store) Debug(message, source string, details map[string]any) {
	s.Append(LevelDebug, message, source, details, "")
}

// Info appends an info entry.
func (s *Store) Info(message, source string, details map[string]any) {
	s.Append(LevelInfo, message, source, details, "")
}

// Warn appends a warn entry.
func (s *Store) Warn(message, source string, details map[string]any) {
	s.Append(LevelWarn, message, source, details, "")
}

// Error appends an error entry.
func (s *Store) Error(message, source string, details map[string]any) {
	s.Append(LevelError, message, source, details, "")
}

// Success appends a success entry.
func (s *Store) Success(message, source string, details map[string]any) {
	s.Append(LevelSuccess, message, source, details, "")
}

// evictLocked drops the oldest entries until the store is within capacity.
func (s *Store) evictLocked() {
	excess := len(s.entries) - s.maxN
	if excess <= 0 {
		return
	}
	n := copy(s.entries, s.entries[excess:])
	clear(s.entries[n:])
	s.entries = s.entries[:n]
}

// Query returns the entries matching filter, newest first. A limit <= 0
// returns every match.
func (s *Store) Query(filter *Filter, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !filter.Match(s.entries[i]) {
			continue
		}
		out = append(out, s.entries[i].clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes the entries matching filter (all entries for a nil or empty
// filter) and returns how many were removed.
func (s *Store) Clear(filter *Filter) int {
	s.mu.Lock()
	before := len(s.entries)
	if filter.IsEmpty() {
		s.entries = nil
	} else {
		kept := s.entries[:0]
		for _, e := range s.entries {
			if !filter.Match(e) {
				kept = append(kept, e)
			}
		}
		clear(s.entries[len(kept):])
		s.entries = kept
	}
	removed := before - len(s.entries)
	s.mu.Unlock()

	s.Info(fmt.Sprintf("%d log entries cleared", removed), SourceSystem, nil)
	return removed
}

// MinLevel returns the current minimum level.
func (s *Store) MinLevel() Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minLevel
}

// SetMinLevel changes the write-time filter. Stored entries are kept.
func (s *Store) SetMinLevel(l Level) error {
	if !l.Valid() {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidFilter, l)
	}
	s.mu.Lock()
	s.minLevel = l
	s.mu.Unlock()
	return nil
}

// MaxEntries returns the capacity.
func (s *Store) MaxEntries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxN
}

// SetMaxEntries changes the capacity and evicts at once if needed.
func (s *Store) SetMaxEntries(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxN = n
	s.evictLocked()
	s.mu.Unlock()
}

// OnAppend registers fn to run after every accepted entry. The returned
// function removes it.
func (s *Store) OnAppend(fn func(Entry)) (remove func()) {
	s.hooksMu.Lock()
	s.hookSeq++
	id := s.hookSeq
	s.hooks[id] = fn
	s.hooksMu.Unlock()

	return func() {
		s.hooksMu.Lock()
		delete(s.hooks, id)
		s.hooksMu.Unlock()
	}
}

func (s *Store) notify(e Entry) {
	s.hooksMu.RLock()
	ids := make([]uint64, 0, len(s.hooks))
	for id := range s.hooks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Entry), len(ids))
	for i, id := range ids {
		fns[i] = s.hooks[id]
	}
	s.hooksMu.RUnlock()

	for _, fn := range fns {
		runHook(fn, e.clone())
	}
}

// runHook isolates a panicking hook from the appender.
func runHook(fn func(Entry), e Entry) {
	defer func() { _ = recover() }()
	fn(e)
}

func (s *Store) echo(e Entry) {
	if s.console == nil {
		return
	}
	s.consoleMu.Lock()
	defer s.consoleMu.Unlock()
	_, _ = io.WriteString(s.console, e.String()+"\n")
}

// Close stops auto-save and writes a final snapshot. It is safe to call
// more than once; only the first call persists.
func (s *Store) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.StopAutoSave()
		s.Save(ctx)
	})
}
