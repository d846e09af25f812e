package models

import "time"

type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaSeries MediaKind = "series"
)

// ParseMediaKind validates an external kind string.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case MediaMovie:
		return MediaMovie, true
	case MediaSeries:
		return MediaSeries, true
	default:
		return "", false
	}
}

type RequestStatus string

const (
	StatusPending     RequestStatus = "pending"
	StatusDownloading RequestStatus = "downloading"
	StatusAvailable   RequestStatus = "available"
	StatusUnreleased  RequestStatus = "unreleased"
	StatusFailed      RequestStatus = "failed"
)

// Subscriber is one chat user waiting on a request. The first subscriber is
// always the original requester.
type Subscriber struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// ExternalIDs carries the cross-service identifiers a record accumulates.
// CatalogID (TMDB) is the deduplication key and is known before the item is
// added to a manager; DownloadID is the manager's own id and is what the
// reconciliation sweep queries by.
type ExternalIDs struct {
	CatalogID       int `json:"catalog_id"`
	DownloadID      int `json:"download_id"`
	SeriesCatalogID int `json:"series_catalog_id,omitempty"`
}

type RequestRecord struct {
	ID          string        `json:"id"`
	MediaKind   MediaKind     `json:"media_kind"`
	Title       string        `json:"title"`
	Year        int           `json:"year"`
	ExternalIDs ExternalIDs   `json:"external_ids"`
	ReleaseDate string        `json:"release_date,omitempty"` // YYYY-MM-DD
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Notified    bool          `json:"notified"`
	Subscribers []Subscriber  `json:"subscribers"`
}

// Requester returns the original requester.
func (r *RequestRecord) Requester() Subscriber {
	if len(r.Subscribers) == 0 {
		return Subscriber{}
	}
	return r.Subscribers[0]
}

func (r *RequestRecord) HasSubscriber(userID int64) bool {
	for _, s := range r.Subscribers {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// ReleaseDateInFuture reports whether a YYYY-MM-DD release date is strictly
// after now, by calendar date. Empty or malformed dates count as released.
func ReleaseDateInFuture(releaseDate string, now time.Time) bool {
	if releaseDate == "" {
		return false
	}
	release, err := time.Parse("2006-01-02", releaseDate)
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return release.After(today)
}

// ReleaseDateDisplay formats a YYYY-MM-DD date for humans, falling back to
// the raw string when it does not parse.
func ReleaseDateDisplay(releaseDate string) string {
	if releaseDate == "" {
		return "Unknown"
	}
	release, err := time.Parse("2006-01-02", releaseDate)
	if err != nil {
		return releaseDate
	}
	return release.Format("January 2, 2006")
}
