// Package metadata persists per-image facts as a single JSON document.
//
// The document is small and rewritten whole on every mutation; reads are
// served from an in-memory map loaded at construction. Concurrent
// writers within the process are serialized by a mutex; across
// processes the semantics are last-writer-wins.
package metadata

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"urchin/internal/fileutil"
	"urchin/internal/logging"
)

// Record holds the stored facts for one image, keyed by storage filename.
type Record struct {
	OriginalName    string         `json:"original_name"`
	UploadTime      time.Time      `json:"upload_time"`
	AnnotationCount int            `json:"annotation_count"`
	Classes         map[string]int `json:"classes,omitempty"`
	AnnotationTime  *time.Time     `json:"annotation_time,omitempty"`
}

// Annotated reports whether the image carries at least one annotation.
func (r Record) Annotated() bool { return r.AnnotationCount > 0 }

// Store provides thread-safe access to the metadata document.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]Record
}

// NewStore loads the document at path. A corrupt or missing document is
// treated as empty.
func NewStore(path string, logger *slog.Logger) *Store {
	logger = logging.NewComponentLogger(logger, "metadata")
	s := &Store{
		path:    path,
		logger:  logger,
		records: make(map[string]Record),
	}
	if err := s.load(); err != nil {
		logger.Warn("failed to load metadata document; starting empty",
			logging.Error(err),
			logging.String(logging.FieldEventType, "metadata_load_failed"),
			logging.String(logging.FieldImpact, "upload history for existing images is lost"))
	}
	return s
}

// Get returns the record for an image id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Put inserts or replaces the record for id and persists the document.
func (s *Store) Put(id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return s.persistLocked()
}

// Update applies fn to the record for id (zero record when absent) and
// persists the result.
func (s *Store) Update(id string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	fn(&rec)
	s.records[id] = rec
	return s.persistLocked()
}

// Delete removes the record for id. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	return s.persistLocked()
}

// Rename moves the record from oldID to newID, used when images move
// between folders under a new storage name.
func (s *Store) Rename(oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[oldID]
	if !ok {
		return nil
	}
	delete(s.records, oldID)
	s.records[newID] = rec
	return s.persistLocked()
}

// Snapshot returns a copy of all records.
func (s *Store) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

// IDs returns all known image ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	records := make(map[string]Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	s.records = records
	return nil
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}
