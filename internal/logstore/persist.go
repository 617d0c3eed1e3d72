package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the persisted form of the newest entries.
type Snapshot struct {
	Entries []Entry   `json:"entries"`
	SavedAt time.Time `json:"savedAt"`
}

// UnmarshalJSON also accepts the older {logs, savedAt} layout.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Entries []Entry   `json:"entries"`
		Logs    []Entry   `json:"logs"`
		SavedAt time.Time `json:"savedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Entries = raw.Entries
	if s.Entries == nil {
		s.Entries = raw.Logs
	}
	s.SavedAt = raw.SavedAt
	return nil
}

// Persister stores and loads snapshots.
type Persister interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// FilePersister keeps the snapshot in a single JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the snapshot file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Save writes the snapshot to a temp file and renames it into place.
func (p *FilePersister) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".logs-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (p *FilePersister) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return snap, nil
}

// Open restores the persisted snapshot into the store and returns the
// number of entries added. Failures are recorded, not returned.
func (s *Store) Open(ctx context.Context) int {
	if s.persister == nil {
		return 0
	}
	snap, err := s.persister.Load(ctx)
	if err != nil {
		s.recordPersistErr(&PersistenceError{Op: "load", Err: err})
		return 0
	}
	if len(snap.Entries) == 0 {
		return 0
	}
	blob, err := json.Marshal(snap.Entries)
	if err != nil {
		s.recordPersistErr(&PersistenceError{Op: "load", Err: err})
		return 0
	}
	n, err := s.Import(blob)
	if err != nil {
		s.recordPersistErr(&PersistenceError{Op: "load", Err: err})
		return 0
	}
	return n
}

// Snapshot returns the newest PersistCount entries, newest first.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	n := s.persistN
	s.mu.RUnlock()
	return Snapshot{Entries: s.Query(nil, n), SavedAt: s.now()}
}

// Save writes a snapshot through the persister. Failures are recorded and
// swallowed.
func (s *Store) Save(ctx context.Context) {
	if s.persister == nil {
		return
	}
	snap := s.Snapshot()
	if snap.Entries == nil {
		snap.Entries = []Entry{}
	}
	if err := s.persister.Save(ctx, snap); err != nil {
		s.recordPersistErr(&PersistenceError{Op: "save", Err: err})
	}
}

func (s *Store) recordPersistErr(err error) {
	s.persistMu.Lock()
	s.persistFailures++
	s.lastPersistErr = err
	s.persistMu.Unlock()
}

// PersistFailures returns how many save or load attempts have failed.
func (s *Store) PersistFailures() int {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.persistFailures
}

// LastPersistError returns the most recent persistence failure, if any.
func (s *Store) LastPersistError() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.lastPersistErr
}

// StartAutoSave saves a snapshot every interval until StopAutoSave or
// Close. Calling it while auto-save is running restarts the ticker.
func (s *Store) StartAutoSave(interval time.Duration) {
	if s.persister == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}
	s.StopAutoSave()

	s.autoSaveMu.Lock()
	defer s.autoSaveMu.Unlock()

	stop := make(chan struct{})
	done := make(chan struct{})
	s.autoSaveStop = stop
	s.autoSaveDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				s.Save(ctx)
				cancel()
			}
		}
	}()
}

// StopAutoSave stops the auto-save loop and waits for it to exit.
func (s *Store) StopAutoSave() {
	s.autoSaveMu.Lock()
	stop, done := s.autoSaveStop, s.autoSaveDone
	s.autoSaveStop, s.autoSaveDone = nil, nil
	s.autoSaveMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
