package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Mediarr/models"
	"Mediarr/store"
)

// recentFetchCount is how far back each recently-added pass looks.
const recentFetchCount = 20

// RecentFeed is the slice of the library index the notifier needs.
type RecentFeed interface {
	Configured() bool
	RecentlyAdded(ctx context.Context, count int) ([]RecentItem, error)
}

// RecentlyAddedNotifier announces new library content to the group, once per
// item. Content that matches a tracked request is suppressed (and still
// marked seen): those users already got their per-subscriber notification.
type RecentlyAddedNotifier struct {
	ledger    *store.NotifiedStore
	requests  *store.RequestStore
	library   RecentFeed
	messenger Messenger
	now       func() time.Time
}

func NewRecentlyAddedNotifier(ledger *store.NotifiedStore, requests *store.RequestStore, library RecentFeed, messenger Messenger) *RecentlyAddedNotifier {
	return &RecentlyAddedNotifier{
		ledger:    ledger,
		requests:  requests,
		library:   library,
		messenger: messenger,
		now:       time.Now,
	}
}

// CheckAndNotify fetches the latest library additions and broadcasts the
// ones nobody has been told about. Returns how many broadcasts went out.
// Failures are local: this runs from the scheduler and never raises.
func (n *RecentlyAddedNotifier) CheckAndNotify(ctx context.Context) int {
	if n.library == nil || !n.library.Configured() {
		slog.Debug("Library index not configured, skipping recently-added check")
		return 0
	}

	items, err := n.library.RecentlyAdded(ctx, recentFetchCount)
	if err != nil {
		slog.Error("Failed to fetch recently added", "error", err)
		return 0
	}
	if len(items) == 0 {
		slog.Debug("No recently added items to check")
		return 0
	}

	sent := 0
	for _, item := range items {
		kind, ok := kindFromLibrary(item.MediaType)
		if !ok {
			// Seasons and episodes ride along with their show.
			continue
		}

		key := fmt.Sprintf("%s_%s", item.MediaType, item.RatingKey)
		if n.ledger.Seen(key) {
			continue
		}

		entry := models.NotifiedItem{
			Key:        key,
			Title:      item.Title,
			MediaKind:  kind,
			Year:       item.Year,
			NotifiedAt: n.now(),
		}

		if n.matchesTrackedRequest(item.Title, item.Year, kind) {
			// The subscribers were notified individually; mark it seen so
			// it is never reconsidered, but stay quiet.
			slog.Debug("Skipping broadcast, matches a tracked request", "title", item.Title)
			if err := n.ledger.Mark(entry); err != nil {
				slog.Error("Failed to record notified item", "key", key, "error", err)
			}
			continue
		}

		n.broadcast(ctx, item, kind)
		if err := n.ledger.Mark(entry); err != nil {
			slog.Error("Failed to record notified item", "key", key, "error", err)
		}
		sent++
	}

	if err := n.ledger.SetLastCheck(n.now()); err != nil {
		slog.Error("Failed to stamp recently-added check time", "error", err)
	}
	if sent > 0 {
		slog.Info("Sent new content notifications", "count", sent)
	}
	return sent
}

// PruneLedger drops ledger entries older than the retention window; the
// 500-entry cap already bounds size, this keeps the file fresh.
func (n *RecentlyAddedNotifier) PruneLedger(retention time.Duration) (int, error) {
	return n.ledger.Prune(n.now().Add(-retention))
}

func (n *RecentlyAddedNotifier) matchesTrackedRequest(title string, year int, kind models.MediaKind) bool {
	for _, rec := range n.requests.All() {
		if rec.MediaKind != kind {
			continue
		}
		if TitlesMatch(title, year, rec.Title, rec.Year) {
			return true
		}
	}
	return false
}

func (n *RecentlyAddedNotifier) broadcast(ctx context.Context, item RecentItem, kind models.MediaKind) {
	noun := "movie"
	emoji := "🎬"
	if kind == models.MediaSeries {
		noun = "series"
		emoji = "📺"
	}
	yearStr := ""
	if item.Year > 0 {
		yearStr = fmt.Sprintf(" (%d)", item.Year)
	}
	message := fmt.Sprintf("%s New %s added: %s%s — now available to watch! 🍿", emoji, noun, item.Title, yearStr)

	if n.messenger == nil {
		slog.Info("No messenger configured, broadcast logged only", "title", item.Title)
		return
	}
	if err := n.messenger.Broadcast(ctx, message); err != nil {
		slog.Error("Failed to send new content notification", "title", item.Title, "error", err)
		return
	}
	slog.Info("Sent notification for new content", "kind", kind, "title", item.Title)
}

func kindFromLibrary(mediaType string) (models.MediaKind, bool) {
	switch mediaType {
	case "movie":
		return models.MediaMovie, true
	case "show":
		return models.MediaSeries, true
	default:
		return "", false
	}
}
