package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Mediarr/config"
	sharedhttp "Mediarr/shared/http"
)

// RadarrClient is the movie-manager client.
type RadarrClient struct {
	arr *arrClient
}

func NewRadarrClient(cfg *config.Config) *RadarrClient {
	return &RadarrClient{arr: newArrClient(cfg.RadarrURL, cfg.RadarrAPIKey)}
}

func (r *RadarrClient) Configured() bool { return r.arr.configured() }

func (r *RadarrClient) Ping(ctx context.Context) error { return r.arr.ping(ctx) }

type radarrMovie struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	TMDBID    int    `json:"tmdbId"`
	HasFile   bool   `json:"hasFile"`
	Monitored bool   `json:"monitored"`
}

type managerQueue struct {
	Records []struct {
		MovieID  int `json:"movieId"`
		SeriesID int `json:"seriesId"`
	} `json:"records"`
}

// FindByCatalogID looks a movie up by its TMDB id. Returns the manager's own
// id and true when the movie is already added.
func (r *RadarrClient) FindByCatalogID(ctx context.Context, tmdbID int) (int, bool, error) {
	var movies []radarrMovie
	if err := r.arr.getJSON(ctx, "movie", &movies, sharedhttp.DefaultClient); err != nil {
		return 0, false, err
	}
	for _, m := range movies {
		if m.TMDBID == tmdbID {
			return m.ID, true, nil
		}
	}
	return 0, false, nil
}

// MovieAdd is the metadata needed to add a movie.
type MovieAdd struct {
	TMDBID      int
	Title       string
	Year        int
	ReleaseDate string
}

// AddMovie adds a movie, monitored, searching immediately. Fails with
// ErrNotConfigured when no root folder or quality profile was supplied.
func (r *RadarrClient) AddMovie(ctx context.Context, movie MovieAdd, rootFolder RootFolder, profile QualityProfile, tagIDs []int) (int, error) {
	if rootFolder.Path == "" || profile.ID == 0 {
		return 0, fmt.Errorf("%w: no root folder or quality profile", ErrNotConfigured)
	}

	payload := map[string]interface{}{
		"title":               movie.Title,
		"year":                movie.Year,
		"tmdbId":              movie.TMDBID,
		"titleSlug":           titleSlug(movie.Title, movie.Year),
		"monitored":           true,
		"minimumAvailability": "announced",
		"rootFolderPath":      rootFolder.Path,
		"qualityProfileId":    profile.ID,
		"tags":                tagIDs,
		"addOptions": map[string]interface{}{
			"searchForMovie": true,
		},
	}

	var created radarrMovie
	if err := r.arr.postJSON(ctx, "movie", payload, &created, sharedhttp.DefaultClient); err != nil {
		return 0, err
	}
	slog.Info("Movie added to Radarr", "title", movie.Title, "radarr_id", created.ID)
	return created.ID, nil
}

// GetStatus reports download state for a tracked movie. ErrNotFound means
// the movie was deleted out from under us.
func (r *RadarrClient) GetStatus(ctx context.Context, radarrID int) (ManagerItemStatus, error) {
	var movie radarrMovie
	if err := r.arr.getJSON(ctx, fmt.Sprintf("movie/%d", radarrID), &movie, sharedhttp.DefaultClient); err != nil {
		return ManagerItemStatus{}, err
	}

	status := ManagerItemStatus{HasFile: movie.HasFile, Monitored: movie.Monitored}
	if status.HasFile || !status.Monitored {
		return status, nil
	}

	// Only bother with the queue when the answer could still be "downloading".
	var queue managerQueue
	if err := r.arr.getJSON(ctx, "queue", &queue, sharedhttp.DefaultClient); err != nil {
		if errors.Is(err, ErrNotFound) {
			return status, nil
		}
		return ManagerItemStatus{}, err
	}
	for _, rec := range queue.Records {
		if rec.MovieID == radarrID {
			status.InQueue = true
			break
		}
	}
	return status, nil
}

// SearchAndCountReleases triggers an indexer search for the movie, waits
// briefly, then counts candidate releases. Post-add UX only.
func (r *RadarrClient) SearchAndCountReleases(ctx context.Context, radarrID int) (int, error) {
	command := map[string]interface{}{
		"name":     "MoviesSearch",
		"movieIds": []int{radarrID},
	}
	if err := r.arr.postJSON(ctx, "command", command, nil, sharedhttp.LongTimeoutClient); err != nil {
		return 0, err
	}

	// Give the search a moment to hit the indexers.
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(3 * time.Second):
	}

	var releases []struct {
		Title string `json:"title"`
	}
	if err := r.arr.getJSON(ctx, fmt.Sprintf("release?movieId=%d", radarrID), &releases, sharedhttp.LongTimeoutClient); err != nil {
		return 0, err
	}
	return len(releases), nil
}

// GetOrCreateTag returns the id of the requester-attribution tag.
func (r *RadarrClient) GetOrCreateTag(ctx context.Context, label string) (int, error) {
	return r.arr.getOrCreateTag(ctx, label)
}

func (r *RadarrClient) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := r.arr.getJSON(ctx, "rootfolder", &folders, sharedhttp.DefaultClient); err != nil {
		return nil, err
	}
	return folders, nil
}

func (r *RadarrClient) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := r.arr.getJSON(ctx, "qualityprofile", &profiles, sharedhttp.DefaultClient); err != nil {
		return nil, err
	}
	return profiles, nil
}
