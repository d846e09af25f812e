package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mediarr/models"
)

func newTestRecord(id string, catalogID int) models.RequestRecord {
	return models.RequestRecord{
		ID:          id,
		MediaKind:   models.MediaMovie,
		Title:       "Dune",
		Year:        2021,
		ExternalIDs: models.ExternalIDs{CatalogID: catalogID, DownloadID: 42},
		Status:      models.StatusPending,
		RequestedAt: time.Now(),
		UpdatedAt:   time.Now(),
		Subscribers: []models.Subscriber{{UserID: 1, DisplayName: "alice"}},
	}
}

func TestRequestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")

	s, err := OpenRequestStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(newTestRecord("a", 100)))
	require.NoError(t, s.Add(newTestRecord("b", 200)))

	reloaded, err := OpenRequestStore(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	rec, ok := reloaded.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Dune", rec.Title)
	assert.Equal(t, 100, rec.ExternalIDs.CatalogID)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Len(t, rec.Subscribers, 1)
}

func TestOpenRequestStoreMissingFile(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "nope", "requests.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestFindActiveIgnoresNotified(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)

	require.NoError(t, s.Add(newTestRecord("a", 100)))
	_, ok := s.FindActive(models.MediaMovie, 100)
	assert.True(t, ok)

	require.NoError(t, s.MarkNotified("a"))
	_, ok = s.FindActive(models.MediaMovie, 100)
	assert.False(t, ok, "notified records never match, the content can be requested again")

	// A fresh request for the same content coexists with the notified one.
	require.NoError(t, s.Add(newTestRecord("a2", 100)))
	rec, ok := s.FindActive(models.MediaMovie, 100)
	require.True(t, ok)
	assert.Equal(t, "a2", rec.ID)
}

func TestFindActiveIsKindScoped(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)

	movie := newTestRecord("m", 100)
	require.NoError(t, s.Add(movie))

	_, ok := s.FindActive(models.MediaSeries, 100)
	assert.False(t, ok, "a movie and a series can share a catalog id")
}

func TestAddSubscriber(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)
	require.NoError(t, s.Add(newTestRecord("a", 100)))

	added, err := s.AddSubscriber("a", models.Subscriber{UserID: 2, DisplayName: "bob"})
	require.NoError(t, err)
	assert.True(t, added)

	// Same user again is a no-op, not an error.
	added, err = s.AddSubscriber("a", models.Subscriber{UserID: 2, DisplayName: "bob"})
	require.NoError(t, err)
	assert.False(t, added)

	rec, ok := s.Get("a")
	require.True(t, ok)
	require.Len(t, rec.Subscribers, 2)
	assert.Equal(t, int64(1), rec.Requester().UserID, "insertion order preserved, requester first")

	_, err = s.AddSubscriber("missing", models.Subscriber{UserID: 3})
	assert.Error(t, err)
}

func TestMarkNotifiedForcesAvailable(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)
	require.NoError(t, s.Add(newTestRecord("a", 100)))

	require.NoError(t, s.MarkNotified("a"))
	rec, ok := s.Get("a")
	require.True(t, ok)
	assert.True(t, rec.Notified)
	assert.Equal(t, models.StatusAvailable, rec.Status)
	assert.Empty(t, s.Pending())
}

func TestRemovePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")
	s, err := OpenRequestStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(newTestRecord("a", 100)))
	require.NoError(t, s.Add(newTestRecord("b", 200)))

	removed, err := s.Remove("a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove("a")
	require.NoError(t, err)
	assert.False(t, removed, "second remove is a no-op")

	reloaded, err := OpenRequestStore(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
	_, ok := reloaded.Get("a")
	assert.False(t, ok)
}

func TestRemoveNotified(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)
	require.NoError(t, s.Add(newTestRecord("a", 100)))
	require.NoError(t, s.Add(newTestRecord("b", 200)))
	require.NoError(t, s.MarkNotified("a"))

	removed, err := s.RemoveNotified()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestPruneNotified(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)

	old := newTestRecord("old", 100)
	old.RequestedAt = time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, s.Add(old))
	require.NoError(t, s.Add(newTestRecord("fresh", 200)))
	require.NoError(t, s.MarkNotified("old"))
	require.NoError(t, s.MarkNotified("fresh"))

	oldPending := newTestRecord("old-pending", 300)
	oldPending.RequestedAt = time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, s.Add(oldPending))

	removed, err := s.PruneNotified(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("old-pending")
	assert.True(t, ok, "non-notified records are never pruned regardless of age")
}

func TestByUser(t *testing.T) {
	s, err := OpenRequestStore(filepath.Join(t.TempDir(), "requests.json"))
	require.NoError(t, err)
	require.NoError(t, s.Add(newTestRecord("a", 100)))

	b := newTestRecord("b", 200)
	b.Subscribers = []models.Subscriber{{UserID: 2, DisplayName: "bob"}}
	require.NoError(t, s.Add(b))
	_, err = s.AddSubscriber("b", models.Subscriber{UserID: 1, DisplayName: "alice"})
	require.NoError(t, err)

	assert.Len(t, s.ByUser(1), 2)
	assert.Len(t, s.ByUser(2), 1)
	assert.Empty(t, s.ByUser(3))
}
