package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"Mediarr/config"
	"Mediarr/models"
	sharedhttp "Mediarr/shared/http"
)

// TautulliClient talks to the library index. It is both the
// library-presence oracle (search) and the recently-added feed.
type TautulliClient struct {
	baseURL string
	apiKey  string
}

func NewTautulliClient(cfg *config.Config) *TautulliClient {
	return &TautulliClient{
		baseURL: strings.TrimRight(cfg.TautulliURL, "/"),
		apiKey:  cfg.TautulliAPIKey,
	}
}

func (t *TautulliClient) Configured() bool {
	return t.baseURL != "" && t.apiKey != ""
}

// LibraryItem is one title the library index knows about.
type LibraryItem struct {
	Title string
	Year  int
	Kind  models.MediaKind
}

// RecentItem is one entry from the recently-added feed. MediaType is the raw
// index value ("movie", "show", "season", "episode"); only whole movies and
// shows get announced.
type RecentItem struct {
	RatingKey string
	MediaType string
	Title     string
	Year      int
}

// flexInt tolerates the index returning numbers as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

func (t *TautulliClient) call(ctx context.Context, cmd string, params map[string]string, out interface{}) error {
	if !t.Configured() {
		return ErrNotConfigured
	}

	query := map[string]string{
		"apikey": t.apiKey,
		"cmd":    cmd,
	}
	for k, v := range params {
		query[k] = v
	}
	url := sharedhttp.BuildQueryURL(t.baseURL+"/api/v2", query)

	resp, err := sharedhttp.Get(ctx, url, nil, sharedhttp.DefaultClient)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		sharedhttp.Drain(resp)
		return fmt.Errorf("tautulli returned status %d", resp.StatusCode)
	}
	return sharedhttp.DecodeJSONResponse(resp, out)
}

// Search queries the library index by title. The results are noisy and
// substring-based; callers do their own fuzzy matching over them.
func (t *TautulliClient) Search(ctx context.Context, title string) ([]LibraryItem, error) {
	var payload struct {
		Response struct {
			Result string `json:"result"`
			Data   struct {
				ResultsList struct {
					Movie []struct {
						Title string  `json:"title"`
						Year  flexInt `json:"year"`
					} `json:"movie"`
					Show []struct {
						Title string  `json:"title"`
						Year  flexInt `json:"year"`
					} `json:"show"`
				} `json:"results_list"`
			} `json:"data"`
		} `json:"response"`
	}

	if err := t.call(ctx, "search", map[string]string{"query": title}, &payload); err != nil {
		return nil, err
	}
	if payload.Response.Result != "success" {
		return nil, fmt.Errorf("tautulli search was not successful")
	}

	var items []LibraryItem
	for _, m := range payload.Response.Data.ResultsList.Movie {
		items = append(items, LibraryItem{Title: m.Title, Year: int(m.Year), Kind: models.MediaMovie})
	}
	for _, s := range payload.Response.Data.ResultsList.Show {
		items = append(items, LibraryItem{Title: s.Title, Year: int(s.Year), Kind: models.MediaSeries})
	}
	return items, nil
}

// InLibrary reports whether a title is already available to watch,
// independent of the download managers.
func (t *TautulliClient) InLibrary(ctx context.Context, title string, year int, kind models.MediaKind) (bool, error) {
	items, err := t.Search(ctx, title)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.Kind == kind && TitlesMatch(title, year, item.Title, item.Year) {
			return true, nil
		}
	}
	return false, nil
}

// RecentlyAdded fetches the count most recently added library items.
func (t *TautulliClient) RecentlyAdded(ctx context.Context, count int) ([]RecentItem, error) {
	var payload struct {
		Response struct {
			Result string `json:"result"`
			Data   struct {
				RecentlyAdded []struct {
					RatingKey string  `json:"rating_key"`
					MediaType string  `json:"media_type"`
					Title     string  `json:"title"`
					Year      flexInt `json:"year"`
				} `json:"recently_added"`
			} `json:"data"`
		} `json:"response"`
	}

	if err := t.call(ctx, "get_recently_added", map[string]string{"count": strconv.Itoa(count)}, &payload); err != nil {
		return nil, err
	}
	if payload.Response.Result != "success" {
		return nil, fmt.Errorf("tautulli recently added was not successful")
	}

	var items []RecentItem
	for _, r := range payload.Response.Data.RecentlyAdded {
		items = append(items, RecentItem{
			RatingKey: r.RatingKey,
			MediaType: r.MediaType,
			Title:     r.Title,
			Year:      int(r.Year),
		})
	}
	return items, nil
}
