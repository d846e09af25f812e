package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"Mediarr/models"
	"Mediarr/store"
)

// Messenger delivers notifications to the group chat. Delivery is
// best-effort from the tracker's point of view: failures are logged by the
// implementation and never raised back into a sweep.
type Messenger interface {
	Notify(ctx context.Context, userID int64, displayName, message string) error
	Broadcast(ctx context.Context, message string) error
}

// ManagerClient is the slice of the download-manager contract the tracker
// needs for reconciliation.
type ManagerClient interface {
	Configured() bool
	Ping(ctx context.Context) error
	GetStatus(ctx context.Context, id int) (ManagerItemStatus, error)
}

// RequestTracker owns the request lifecycle: creation, duplicate detection,
// subscriber fan-out, periodic reconciliation against the managers, and
// availability notifications.
type RequestTracker struct {
	store     *store.RequestStore
	movies    ManagerClient
	series    ManagerClient
	messenger Messenger
	now       func() time.Time
}

func NewRequestTracker(requests *store.RequestStore, movies, series ManagerClient, messenger Messenger) *RequestTracker {
	return &RequestTracker{
		store:     requests,
		movies:    movies,
		series:    series,
		messenger: messenger,
		now:       time.Now,
	}
}

// SubmitParams describes one user-initiated request. DownloadID is the
// manager's own id for the already-added item: the caller performs the
// manager add first (root folder and quality profile selection happen
// there), then records the request here.
type SubmitParams struct {
	Kind            models.MediaKind
	Title           string
	Year            int
	CatalogID       int
	SeriesCatalogID int
	DownloadID      int
	ReleaseDate     string
	UserID          int64
	DisplayName     string
}

// SubmitResult reports what SubmitOrJoin did. Created means a fresh record;
// Joined means the user was attached to someone else's existing request;
// neither means the user had already requested this content themselves.
type SubmitResult struct {
	Record  models.RequestRecord
	Created bool
	Joined  bool
}

// SubmitOrJoin records a request, deduplicating on (kind, catalog id)
// against non-notified records. A duplicate always succeeds from the user's
// point of view: it either joins the existing record or is a no-op.
func (t *RequestTracker) SubmitOrJoin(p SubmitParams) (SubmitResult, error) {
	if p.CatalogID == 0 {
		return SubmitResult{}, fmt.Errorf("request for %q has no catalog id", p.Title)
	}

	if existing, ok := t.store.FindActive(p.Kind, p.CatalogID); ok {
		added, err := t.store.AddSubscriber(existing.ID, models.Subscriber{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
		})
		if err != nil {
			return SubmitResult{}, err
		}
		record, _ := t.store.Get(existing.ID)
		if added {
			slog.Info("Added subscriber to existing request",
				"request_id", existing.ID, "title", existing.Title, "user", p.DisplayName)
		}
		return SubmitResult{Record: record, Joined: added}, nil
	}

	now := t.now()
	status := models.StatusPending
	if models.ReleaseDateInFuture(p.ReleaseDate, now) {
		status = models.StatusUnreleased
	}

	record := models.RequestRecord{
		ID:        uuid.NewString(),
		MediaKind: p.Kind,
		Title:     p.Title,
		Year:      p.Year,
		ExternalIDs: models.ExternalIDs{
			CatalogID:       p.CatalogID,
			DownloadID:      p.DownloadID,
			SeriesCatalogID: p.SeriesCatalogID,
		},
		ReleaseDate: p.ReleaseDate,
		Status:      status,
		RequestedAt: now,
		UpdatedAt:   now,
		Subscribers: []models.Subscriber{{UserID: p.UserID, DisplayName: p.DisplayName}},
	}
	if err := t.store.Add(record); err != nil {
		return SubmitResult{}, err
	}

	slog.Info("Added request", "request_id", record.ID, "title", p.Title,
		"year", p.Year, "kind", p.Kind, "user", p.DisplayName, "status", status)
	return SubmitResult{Record: record, Created: true}, nil
}

// Existing returns the active (non-notified) request for a catalog id.
func (t *RequestTracker) Existing(kind models.MediaKind, catalogID int) (models.RequestRecord, bool) {
	return t.store.FindActive(kind, catalogID)
}

// Remove deletes a request by id (admin action).
func (t *RequestTracker) Remove(id string) (bool, error) {
	return t.store.Remove(id)
}

// PruneOld removes notified records older than the retention window.
func (t *RequestTracker) PruneOld(retention time.Duration) (int, error) {
	return t.store.PruneNotified(t.now().Add(-retention))
}

// Sweep reconciles every non-notified request against the managers and
// returns how many requests were notified as available. It never returns an
// error: a sweep is a background operation and all failures are local.
func (t *RequestTracker) Sweep(ctx context.Context) int {
	pending := t.store.Pending()
	if len(pending) == 0 {
		slog.Debug("No pending requests to check")
		return 0
	}

	// Release-date gate: unreleased content cannot possibly be available,
	// so it never costs a manager query. A date that has passed since the
	// last sweep puts the record back into play right now.
	var due []models.RequestRecord
	skipped := 0
	for _, rec := range pending {
		if models.ReleaseDateInFuture(rec.ReleaseDate, t.now()) {
			if rec.Status != models.StatusUnreleased {
				if err := t.store.SetStatus(rec.ID, models.StatusUnreleased); err != nil {
					slog.Error("Failed to mark request unreleased", "request_id", rec.ID, "error", err)
				}
			}
			skipped++
			continue
		}
		if rec.Status == models.StatusUnreleased {
			if err := t.store.SetStatus(rec.ID, models.StatusPending); err != nil {
				slog.Error("Failed to mark request pending", "request_id", rec.ID, "error", err)
			}
			rec.Status = models.StatusPending
			slog.Info("Request is now released, checking for availability",
				"request_id", rec.ID, "title", rec.Title)
		}
		due = append(due, rec)
	}
	if skipped > 0 {
		slog.Debug("Skipped unreleased requests", "count", skipped)
	}
	if len(due) == 0 {
		return 0
	}

	// One cheap reachability probe instead of N timeouts when the media
	// server is powered down.
	if probe := t.probeTarget(); probe != nil {
		if err := probe.Ping(ctx); err != nil {
			slog.Debug("Manager unreachable, skipping request check", "error", err)
			return 0
		}
	}

	slog.Info("Checking pending requests", "count", len(due))
	notified := 0
	for _, rec := range due {
		if err := t.sweepRecord(ctx, rec, &notified); err != nil {
			// One bad record must never abort the sweep.
			slog.Error("Error checking request", "request_id", rec.ID, "title", rec.Title, "error", err)
		}
	}
	if notified > 0 {
		slog.Info("Sent availability notifications", "count", notified)
	}
	return notified
}

func (t *RequestTracker) probeTarget() ManagerClient {
	if t.movies != nil && t.movies.Configured() {
		return t.movies
	}
	if t.series != nil && t.series.Configured() {
		return t.series
	}
	return nil
}

func (t *RequestTracker) clientFor(kind models.MediaKind) ManagerClient {
	if kind == models.MediaSeries {
		return t.series
	}
	return t.movies
}

func (t *RequestTracker) sweepRecord(ctx context.Context, rec models.RequestRecord, notified *int) error {
	client := t.clientFor(rec.MediaKind)
	if client == nil || !client.Configured() {
		return nil
	}
	if rec.ExternalIDs.DownloadID == 0 {
		slog.Debug("Request has no manager id, skipping", "request_id", rec.ID)
		return nil
	}

	status, err := client.GetStatus(ctx, rec.ExternalIDs.DownloadID)
	if errors.Is(err, ErrNotFound) {
		// The target was deleted in the manager: self-heal by dropping the
		// record rather than flagging it failed.
		if _, err := t.store.Remove(rec.ID); err != nil {
			return err
		}
		slog.Info("Auto-removed request, no longer in manager",
			"request_id", rec.ID, "title", rec.Title)
		return nil
	}
	if err != nil {
		// Transient: leave the record for the next sweep.
		return err
	}

	next := statusFromManager(status)
	if err := t.store.SetStatus(rec.ID, next); err != nil {
		return err
	}
	if next != models.StatusAvailable {
		return nil
	}

	// Fan-out: one notification per subscriber, isolated failures. The
	// notified flag is set regardless, notification is not transactional
	// with the status transition.
	for _, sub := range rec.Subscribers {
		t.notifySubscriber(ctx, sub, rec)
	}
	if err := t.store.MarkNotified(rec.ID); err != nil {
		return err
	}
	*notified++
	return nil
}

func statusFromManager(s ManagerItemStatus) models.RequestStatus {
	switch {
	case s.HasFile:
		return models.StatusAvailable
	case s.Monitored && s.InQueue:
		return models.StatusDownloading
	case s.Monitored:
		return models.StatusPending
	default:
		return models.StatusFailed
	}
}

func (t *RequestTracker) notifySubscriber(ctx context.Context, sub models.Subscriber, rec models.RequestRecord) {
	message := availabilityMessage(rec)
	if t.messenger == nil {
		slog.Info("No messenger configured, availability notification logged only",
			"title", rec.Title, "user", sub.DisplayName)
		return
	}
	if err := t.messenger.Notify(ctx, sub.UserID, sub.DisplayName, message); err != nil {
		slog.Error("Failed to send availability notification",
			"request_id", rec.ID, "user", sub.DisplayName, "error", err)
		return
	}
	slog.Info("Sent availability notification", "title", rec.Title, "user", sub.DisplayName)
}

func availabilityMessage(rec models.RequestRecord) string {
	noun := "movie"
	if rec.MediaKind == models.MediaSeries {
		noun = "series"
	}
	return fmt.Sprintf("✅ Your requested %s %q is now available to watch! 🍿", noun, rec.Title)
}
