package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mediarr/models"
)

func TestNotifiedStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified_items.json")

	s, err := OpenNotifiedStore(path)
	require.NoError(t, err)

	item := models.NotifiedItem{
		Key:        "movie_12345",
		Title:      "Dune",
		MediaKind:  models.MediaMovie,
		Year:       2021,
		NotifiedAt: time.Now(),
	}
	require.NoError(t, s.Mark(item))
	check := time.Now()
	require.NoError(t, s.SetLastCheck(check))

	reloaded, err := OpenNotifiedStore(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Seen("movie_12345"))
	assert.False(t, reloaded.Seen("movie_99999"))

	last, ok := reloaded.LastCheck()
	require.True(t, ok)
	assert.WithinDuration(t, check, last, time.Second)
}

func TestNotifiedStoreCapEvictsOldest(t *testing.T) {
	s, err := OpenNotifiedStore(filepath.Join(t.TempDir(), "notified_items.json"))
	require.NoError(t, err)

	for i := 0; i < 600; i++ {
		require.NoError(t, s.Mark(models.NotifiedItem{
			Key:        fmt.Sprintf("movie_%d", i),
			NotifiedAt: time.Now(),
		}))
	}

	items := s.Items()
	require.Len(t, items, 500)
	assert.Equal(t, "movie_100", items[0].Key, "oldest entries evicted first")
	assert.Equal(t, "movie_599", items[len(items)-1].Key)
	assert.False(t, s.Seen("movie_0"))
	assert.True(t, s.Seen("movie_599"))
}

func TestNotifiedStorePrune(t *testing.T) {
	s, err := OpenNotifiedStore(filepath.Join(t.TempDir(), "notified_items.json"))
	require.NoError(t, err)

	require.NoError(t, s.Mark(models.NotifiedItem{
		Key:        "movie_old",
		NotifiedAt: time.Now().Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, s.Mark(models.NotifiedItem{
		Key:        "movie_fresh",
		NotifiedAt: time.Now(),
	}))

	removed, err := s.Prune(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, s.Seen("movie_old"))
	assert.True(t, s.Seen("movie_fresh"))
}

func TestLastCheckUnsetInitially(t *testing.T) {
	s, err := OpenNotifiedStore(filepath.Join(t.TempDir(), "notified_items.json"))
	require.NoError(t, err)
	_, ok := s.LastCheck()
	assert.False(t, ok)
}
