package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mediarr/models"
	"Mediarr/store"
)

type fakeRecentFeed struct {
	offline bool
	items   []RecentItem
	err     error
}

func (f *fakeRecentFeed) Configured() bool { return !f.offline }

func (f *fakeRecentFeed) RecentlyAdded(context.Context, int) ([]RecentItem, error) {
	return f.items, f.err
}

func newTestNotifier(t *testing.T, feed RecentFeed, messenger Messenger) (*RecentlyAddedNotifier, *store.NotifiedStore, *store.RequestStore) {
	t.Helper()
	dir := t.TempDir()
	ledger, err := store.OpenNotifiedStore(filepath.Join(dir, "notified_items.json"))
	require.NoError(t, err)
	requests, err := store.OpenRequestStore(filepath.Join(dir, "requests.json"))
	require.NoError(t, err)
	return NewRecentlyAddedNotifier(ledger, requests, feed, messenger), ledger, requests
}

func TestCheckAndNotifyBroadcastsNewContent(t *testing.T) {
	feed := &fakeRecentFeed{items: []RecentItem{
		{RatingKey: "101", MediaType: "movie", Title: "Heat", Year: 1995},
		{RatingKey: "102", MediaType: "show", Title: "Severance", Year: 2022},
	}}
	messenger := &fakeMessenger{}
	n, ledger, _ := newTestNotifier(t, feed, messenger)

	sent := n.CheckAndNotify(context.Background())
	assert.Equal(t, 2, sent)
	require.Len(t, messenger.broadcasts, 2)
	assert.Contains(t, messenger.broadcasts[0], "Heat")
	assert.Contains(t, messenger.broadcasts[0], "movie")
	assert.Contains(t, messenger.broadcasts[1], "Severance")
	assert.Contains(t, messenger.broadcasts[1], "series")

	assert.True(t, ledger.Seen("movie_101"))
	assert.True(t, ledger.Seen("show_102"))
	_, ok := ledger.LastCheck()
	assert.True(t, ok)

	// The same feed again produces nothing new.
	sent = n.CheckAndNotify(context.Background())
	assert.Equal(t, 0, sent)
	assert.Len(t, messenger.broadcasts, 2)
}

func TestCheckAndNotifySuppressesTrackedRequests(t *testing.T) {
	feed := &fakeRecentFeed{items: []RecentItem{
		{RatingKey: "201", MediaType: "movie", Title: "Dune", Year: 2021},
	}}
	messenger := &fakeMessenger{}
	n, ledger, requests := newTestNotifier(t, feed, messenger)

	require.NoError(t, requests.Add(models.RequestRecord{
		ID:          "r1",
		MediaKind:   models.MediaMovie,
		Title:       "Dune: Part One",
		Year:        2021,
		RequestedAt: time.Now(),
		Subscribers: []models.Subscriber{{UserID: 1, DisplayName: "alice"}},
	}))

	sent := n.CheckAndNotify(context.Background())
	assert.Equal(t, 0, sent)
	assert.Empty(t, messenger.broadcasts, "subscribers already got their own notification")
	assert.True(t, ledger.Seen("movie_201"), "suppressed items are still marked so they never resurface")
}

func TestCheckAndNotifyMatchIsKindScoped(t *testing.T) {
	feed := &fakeRecentFeed{items: []RecentItem{
		{RatingKey: "301", MediaType: "show", Title: "Fargo", Year: 2014},
	}}
	messenger := &fakeMessenger{}
	n, _, requests := newTestNotifier(t, feed, messenger)

	// A tracked movie with the same title must not suppress the show.
	require.NoError(t, requests.Add(models.RequestRecord{
		ID:          "r1",
		MediaKind:   models.MediaMovie,
		Title:       "Fargo",
		Year:        2014,
		RequestedAt: time.Now(),
	}))

	sent := n.CheckAndNotify(context.Background())
	assert.Equal(t, 1, sent)
}

func TestCheckAndNotifySkipsSeasonsAndEpisodes(t *testing.T) {
	feed := &fakeRecentFeed{items: []RecentItem{
		{RatingKey: "401", MediaType: "season", Title: "Severance"},
		{RatingKey: "402", MediaType: "episode", Title: "Severance"},
	}}
	messenger := &fakeMessenger{}
	n, ledger, _ := newTestNotifier(t, feed, messenger)

	sent := n.CheckAndNotify(context.Background())
	assert.Equal(t, 0, sent)
	assert.Empty(t, messenger.broadcasts)
	assert.False(t, ledger.Seen("season_401"), "partial additions ride along with their show")
}

func TestCheckAndNotifyUnconfiguredFeed(t *testing.T) {
	n, _, _ := newTestNotifier(t, &fakeRecentFeed{offline: true}, &fakeMessenger{})
	assert.Equal(t, 0, n.CheckAndNotify(context.Background()))
}

func TestCheckAndNotifyFeedError(t *testing.T) {
	feed := &fakeRecentFeed{err: errors.New("tautulli down")}
	messenger := &fakeMessenger{}
	n, _, _ := newTestNotifier(t, feed, messenger)

	sent := n.CheckAndNotify(context.Background())
	assert.Equal(t, 0, sent)
	assert.Empty(t, messenger.broadcasts)
}

func TestPruneLedger(t *testing.T) {
	n, ledger, _ := newTestNotifier(t, &fakeRecentFeed{}, &fakeMessenger{})

	require.NoError(t, ledger.Mark(models.NotifiedItem{
		Key:        "movie_old",
		NotifiedAt: time.Now().Add(-45 * 24 * time.Hour),
	}))
	require.NoError(t, ledger.Mark(models.NotifiedItem{
		Key:        "movie_new",
		NotifiedAt: time.Now(),
	}))

	removed, err := n.PruneLedger(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, ledger.Seen("movie_old"))
}
