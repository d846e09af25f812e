package services

import (
	"context"
	"fmt"

	"Mediarr/config"
	sharedhttp "Mediarr/shared/http"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDBClient resolves cross-catalog identifiers. The series manager is keyed
// on TVDB ids while users pick results by TMDB id, so a series add needs the
// mapping first.
type TMDBClient struct {
	bearerToken string
}

func NewTMDBClient(cfg *config.Config) *TMDBClient {
	return &TMDBClient{bearerToken: cfg.TMDBBearerToken}
}

func (t *TMDBClient) Configured() bool { return t.bearerToken != "" }

func (t *TMDBClient) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + t.bearerToken,
		"accept":        "application/json",
	}
}

// ResolveTVDBID returns the TVDB id for a TMDB series id, or 0 when TMDB
// does not know one.
func (t *TMDBClient) ResolveTVDBID(ctx context.Context, tmdbID int) (int, error) {
	if !t.Configured() {
		return 0, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/tv/%d/external_ids", tmdbBaseURL, tmdbID)
	resp, err := sharedhttp.Get(ctx, url, t.headers(), sharedhttp.DefaultClient)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != 200 {
		sharedhttp.Drain(resp)
		return 0, fmt.Errorf("TMDB external ids returned status %d", resp.StatusCode)
	}

	var payload struct {
		TVDBID int `json:"tvdb_id"`
	}
	if err := sharedhttp.DecodeJSONResponse(resp, &payload); err != nil {
		return 0, err
	}
	return payload.TVDBID, nil
}
