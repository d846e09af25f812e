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

// ledgerCap bounds the notified-items file; the oldest entries are evicted
// first once the cap is exceeded.
const ledgerCap = 500

// NotifiedStore is the recently-added notifier's ledger of items already
// announced to the group.
type NotifiedStore struct {
	mu        sync.Mutex
	path      string
	items     []models.NotifiedItem
	lastCheck *time.Time
}

type notifiedFile struct {
	Items     []models.NotifiedItem `json:"items"`
	LastCheck *time.Time            `json:"last_check"`
}

// OpenNotifiedStore loads the ledger from path, starting fresh when the file
// does not exist yet.
func OpenNotifiedStore(path string) (*NotifiedStore, error) {
	s := &NotifiedStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("No existing notified-items ledger, starting fresh", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notified-items ledger: %w", err)
	}

	var file notifiedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse notified-items ledger: %w", err)
	}
	s.items = file.Items
	s.lastCheck = file.LastCheck
	slog.Info("Loaded notified items", "count", len(s.items))
	return s, nil
}

func (s *NotifiedStore) persist() error {
	data, err := json.MarshalIndent(notifiedFile{Items: s.items, LastCheck: s.lastCheck}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode notified items: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write notified-items ledger: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Seen reports whether an item key is already in the ledger.
func (s *NotifiedStore) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Key == key {
			return true
		}
	}
	return false
}

// Mark records an item as announced, evicting the oldest entries past the
// 500-item cap, and persists.
func (s *NotifiedStore) Mark(item models.NotifiedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	if len(s.items) > ledgerCap {
		s.items = s.items[len(s.items)-ledgerCap:]
	}
	return s.persist()
}

// SetLastCheck stamps the time of the latest recently-added pass.
func (s *NotifiedStore) SetLastCheck(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheck = &t
	return s.persist()
}

// LastCheck returns the time of the latest pass, if any.
func (s *NotifiedStore) LastCheck() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCheck == nil {
		return time.Time{}, false
	}
	return *s.lastCheck, true
}

// Items returns a copy of the ledger, oldest first.
func (s *NotifiedStore) Items() []models.NotifiedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotifiedItem, len(s.items))
	copy(out, s.items)
	return out
}

// Prune drops ledger entries notified before the cutoff.
func (s *NotifiedStore) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if item.NotifiedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	if removed == 0 {
		return 0, nil
	}
	slog.Info("Cleaned up old notified items", "count", removed)
	return removed, s.persist()
}
