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

// SonarrClient is the series-manager client.
type SonarrClient struct {
	arr *arrClient
}

func NewSonarrClient(cfg *config.Config) *SonarrClient {
	return &SonarrClient{arr: newArrClient(cfg.SonarrURL, cfg.SonarrAPIKey)}
}

func (s *SonarrClient) Configured() bool { return s.arr.configured() }

func (s *SonarrClient) Ping(ctx context.Context) error { return s.arr.ping(ctx) }

type sonarrSeries struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	TVDBID     int    `json:"tvdbId"`
	Monitored  bool   `json:"monitored"`
	Statistics struct {
		EpisodeFileCount int `json:"episodeFileCount"`
	} `json:"statistics"`
}

// FindByCatalogID looks a series up by its TVDB id. Returns the manager's
// own id and true when the series is already added.
func (s *SonarrClient) FindByCatalogID(ctx context.Context, tvdbID int) (int, bool, error) {
	var series []sonarrSeries
	if err := s.arr.getJSON(ctx, "series", &series, sharedhttp.DefaultClient); err != nil {
		return 0, false, err
	}
	for _, sr := range series {
		if sr.TVDBID == tvdbID {
			return sr.ID, true, nil
		}
	}
	return 0, false, nil
}

// SeriesAdd is the metadata needed to add a series.
type SeriesAdd struct {
	TVDBID       int
	Title        string
	Year         int
	FirstAirDate string
}

// AddSeries adds a series monitored with season folders, watching only the
// latest season and searching for missing episodes immediately. Fails with
// ErrNotConfigured when no root folder or quality profile was supplied.
func (s *SonarrClient) AddSeries(ctx context.Context, series SeriesAdd, rootFolder RootFolder, profile QualityProfile, tagIDs []int) (int, error) {
	if rootFolder.Path == "" || profile.ID == 0 {
		return 0, fmt.Errorf("%w: no root folder or quality profile", ErrNotConfigured)
	}

	payload := map[string]interface{}{
		"title":            series.Title,
		"tvdbId":           series.TVDBID,
		"titleSlug":        titleSlug(series.Title, 0),
		"monitored":        true,
		"seasonFolder":     true,
		"rootFolderPath":   rootFolder.Path,
		"qualityProfileId": profile.ID,
		"tags":             tagIDs,
		"addOptions": map[string]interface{}{
			"searchForMissingEpisodes": true,
			"monitor":                  "latestSeason",
		},
	}

	var created sonarrSeries
	if err := s.arr.postJSON(ctx, "series", payload, &created, sharedhttp.DefaultClient); err != nil {
		return 0, err
	}
	slog.Info("Series added to Sonarr", "title", series.Title, "sonarr_id", created.ID)
	return created.ID, nil
}

// GetStatus reports download state for a tracked series. At least one
// downloaded episode counts as available. ErrNotFound means the series was
// deleted out from under us.
func (s *SonarrClient) GetStatus(ctx context.Context, sonarrID int) (ManagerItemStatus, error) {
	var series sonarrSeries
	if err := s.arr.getJSON(ctx, fmt.Sprintf("series/%d", sonarrID), &series, sharedhttp.DefaultClient); err != nil {
		return ManagerItemStatus{}, err
	}

	status := ManagerItemStatus{
		HasFile:   series.Statistics.EpisodeFileCount > 0,
		Monitored: series.Monitored,
	}
	if status.HasFile || !status.Monitored {
		return status, nil
	}

	var queue managerQueue
	if err := s.arr.getJSON(ctx, "queue", &queue, sharedhttp.DefaultClient); err != nil {
		if errors.Is(err, ErrNotFound) {
			return status, nil
		}
		return ManagerItemStatus{}, err
	}
	for _, rec := range queue.Records {
		if rec.SeriesID == sonarrID {
			status.InQueue = true
			break
		}
	}
	return status, nil
}

// SearchAndCountReleases triggers an indexer search for the series, waits
// briefly, then counts candidate releases. Post-add UX only.
func (s *SonarrClient) SearchAndCountReleases(ctx context.Context, sonarrID int) (int, error) {
	command := map[string]interface{}{
		"name":     "SeriesSearch",
		"seriesId": sonarrID,
	}
	if err := s.arr.postJSON(ctx, "command", command, nil, sharedhttp.LongTimeoutClient); err != nil {
		return 0, err
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(3 * time.Second):
	}

	var releases []struct {
		Title string `json:"title"`
	}
	if err := s.arr.getJSON(ctx, fmt.Sprintf("release?seriesId=%d", sonarrID), &releases, sharedhttp.LongTimeoutClient); err != nil {
		return 0, err
	}
	return len(releases), nil
}

// GetOrCreateTag returns the id of the requester-attribution tag.
func (s *SonarrClient) GetOrCreateTag(ctx context.Context, label string) (int, error) {
	return s.arr.getOrCreateTag(ctx, label)
}

func (s *SonarrClient) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := s.arr.getJSON(ctx, "rootfolder", &folders, sharedhttp.DefaultClient); err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *SonarrClient) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := s.arr.getJSON(ctx, "qualityprofile", &profiles, sharedhttp.DefaultClient); err != nil {
		return nil, err
	}
	return profiles, nil
}
