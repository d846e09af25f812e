package models

import "time"

// NotifiedItem is a fire-once marker in the recently-added ledger, keyed by
// (media kind, library catalog id).
type NotifiedItem struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	MediaKind  MediaKind `json:"media_kind"`
	Year       int       `json:"year,omitempty"`
	NotifiedAt time.Time `json:"notified_at"`
}
