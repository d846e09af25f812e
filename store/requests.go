package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Mediarr/models"
)

// RequestStore is the durable collection of tracked requests. State lives in
// memory and is flushed to a single JSON document on every mutation, so a
// killed process never loses more than the call in flight.
type RequestStore struct {
	mu       sync.Mutex
	path     string
	requests []models.RequestRecord
}

type requestsFile struct {
	Requests []models.RequestRecord `json:"requests"`
}

// OpenRequestStore loads the request collection from path, starting fresh
// when the file does not exist yet.
func OpenRequestStore(path string) (*RequestStore, error) {
	s := &RequestStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("No existing requests database, starting fresh", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read requests database: %w", err)
	}

	var file requestsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse requests database: %w", err)
	}
	s.requests = file.Requests
	slog.Info("Loaded tracked requests", "count", len(s.requests))
	return s, nil
}

// persist rewrites the whole file. Callers hold s.mu. The write goes through
// a temp file and rename so a crash mid-write cannot truncate the database.
func (s *RequestStore) persist() error {
	data, err := json.MarshalIndent(requestsFile{Requests: s.requests}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode requests: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write requests database: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Add appends a new record and persists.
func (s *RequestStore) Add(rec models.RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, rec)
	return s.persist()
}

// FindActive returns the single non-notified record for (kind, catalog id),
// if one exists. Notified records are logically read-only and never match,
// so the same content can be requested again after it cycled through.
func (s *RequestStore) FindActive(kind models.MediaKind, catalogID int) (models.RequestRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		r := &s.requests[i]
		if r.MediaKind == kind && r.ExternalIDs.CatalogID == catalogID && !r.Notified {
			return *r, true
		}
	}
	return models.RequestRecord{}, false
}

// Get returns a record by id.
func (s *RequestStore) Get(id string) (models.RequestRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			return s.requests[i], true
		}
	}
	return models.RequestRecord{}, false
}

// AddSubscriber adds a user to a record's notification list. Returns false
// with no error (and no write) when the user is already subscribed.
func (s *RequestStore) AddSubscriber(id string, sub models.Subscriber) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		r := &s.requests[i]
		if r.ID != id {
			continue
		}
		if r.HasSubscriber(sub.UserID) {
			return false, nil
		}
		r.Subscribers = append(r.Subscribers, sub)
		r.UpdatedAt = time.Now()
		return true, s.persist()
	}
	return false, fmt.Errorf("request %s not found", id)
}

// SetStatus updates a record's status and persists.
func (s *RequestStore) SetStatus(id string, status models.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		r := &s.requests[i]
		if r.ID == id {
			r.Status = status
			r.UpdatedAt = time.Now()
			return s.persist()
		}
	}
	return fmt.Errorf("request %s not found", id)
}

// MarkNotified flags a record as notified. A notified record is always
// available and drops out of future sweeps.
func (s *RequestStore) MarkNotified(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		r := &s.requests[i]
		if r.ID == id {
			r.Status = models.StatusAvailable
			r.Notified = true
			r.UpdatedAt = time.Now()
			return s.persist()
		}
	}
	return fmt.Errorf("request %s not found", id)
}

// Remove deletes a record by id, reporting whether anything was removed.
func (s *RequestStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.requests[:0]
	removed := false
	for _, r := range s.requests {
		if r.ID == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	s.requests = kept
	if !removed {
		return false, nil
	}
	return true, s.persist()
}

// RemoveNotified deletes every notified record and returns how many went.
func (s *RequestStore) RemoveNotified() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.requests[:0]
	removed := 0
	for _, r := range s.requests {
		if r.Notified {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.requests = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persist()
}

// PruneNotified removes notified records requested before the cutoff.
func (s *RequestStore) PruneNotified(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.requests[:0]
	removed := 0
	for _, r := range s.requests {
		if r.Notified && r.RequestedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.requests = kept
	if removed == 0 {
		return 0, nil
	}
	slog.Info("Pruned old notified requests", "count", removed)
	return removed, s.persist()
}

// Pending returns copies of all records that have not been notified yet.
func (s *RequestStore) Pending() []models.RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RequestRecord
	for _, r := range s.requests {
		if !r.Notified {
			out = append(out, r)
		}
	}
	return out
}

// All returns copies of every record, newest last.
func (s *RequestStore) All() []models.RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RequestRecord, len(s.requests))
	copy(out, s.requests)
	return out
}

// ByUser returns every record the user is subscribed to.
func (s *RequestStore) ByUser(userID int64) []models.RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RequestRecord
	for _, r := range s.requests {
		if r.HasSubscriber(userID) {
			out = append(out, r)
		}
	}
	return out
}

func (s *RequestStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
