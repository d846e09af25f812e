package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	sharedhttp "Mediarr/shared/http"
)

// ErrNotConfigured means the backend has no URL or API key set. Surfaced to
// the caller immediately, never retried.
var ErrNotConfigured = errors.New("manager not configured")

// ErrNotFound means every probed API version answered 404 for the item: the
// target genuinely does not exist in the manager. Distinct from a transient
// transport failure, which comes back as an ordinary error.
var ErrNotFound = errors.New("not found in manager")

// apiVersions is the probe order: newest first, falling back. A 404 at one
// prefix means "try the next", not a real miss, until the list is exhausted.
var apiVersions = []string{"v3", "v2", "v1"}

// arrClient is the shared HTTP core for the Radarr/Sonarr-style managers.
type arrClient struct {
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

func newArrClient(baseURL, apiKey string) *arrClient {
	return &arrClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// The sweep runs sequentially, but a burst of admin calls on top of
		// it must still stay under the backend's rate tolerance.
		limiter: rate.NewLimiter(rate.Limit(2), 5),
	}
}

func (c *arrClient) configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

func (c *arrClient) headers() map[string]string {
	return map[string]string{"X-Api-Key": c.apiKey}
}

// ping is the cheap reachability probe used to short-circuit a whole sweep
// when the host is down. Any HTTP answer at all counts as reachable.
func (c *arrClient) ping(ctx context.Context) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := sharedhttp.Get(ctx, c.baseURL+"/ping", nil, sharedhttp.ProbeClient)
	if err != nil {
		return err
	}
	sharedhttp.Drain(resp)
	return nil
}

// getJSON GETs /api/{version}/{path}, probing versions in order, and decodes
// the first 2xx answer into out. All versions answering 404 is ErrNotFound;
// transport errors and other statuses move on to the next version and are
// only returned once every version has failed.
func (c *arrClient) getJSON(ctx context.Context, path string, out interface{}, client *http.Client) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	notFound := 0
	var lastErr error
	for _, version := range apiVersions {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		url := fmt.Sprintf("%s/api/%s/%s", c.baseURL, version, path)
		resp, err := sharedhttp.Get(ctx, url, c.headers(), client)
		if err != nil {
			slog.Debug("Manager API call failed", "version", version, "path", path, "error", err)
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return sharedhttp.DecodeJSONResponse(resp, out)
		case resp.StatusCode == http.StatusNotFound:
			sharedhttp.Drain(resp)
			notFound++
		default:
			sharedhttp.Drain(resp)
			lastErr = fmt.Errorf("manager returned status %d for %s %s", resp.StatusCode, version, path)
		}
	}

	if notFound == len(apiVersions) {
		return ErrNotFound
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("all manager API versions failed for %s", path)
}

// postJSON POSTs a JSON body to /api/{version}/{path} with the same probing
// rules as getJSON. A non-nil out receives the decoded 2xx response.
func (c *arrClient) postJSON(ctx context.Context, path string, body, out interface{}, client *http.Client) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	notFound := 0
	var lastErr error
	for _, version := range apiVersions {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		url := fmt.Sprintf("%s/api/%s/%s", c.baseURL, version, path)
		resp, err := sharedhttp.PostJSON(ctx, url, c.headers(), body, client)
		if err != nil {
			slog.Debug("Manager API call failed", "version", version, "path", path, "error", err)
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				sharedhttp.Drain(resp)
				return nil
			}
			return sharedhttp.DecodeJSONResponse(resp, out)
		case resp.StatusCode == http.StatusNotFound:
			sharedhttp.Drain(resp)
			notFound++
		default:
			sharedhttp.Drain(resp)
			lastErr = fmt.Errorf("manager returned status %d for %s %s", resp.StatusCode, version, path)
		}
	}

	if notFound == len(apiVersions) {
		return ErrNotFound
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("all manager API versions failed for %s", path)
}

// Shared manager types.

// ManagerItemStatus is what the reconciliation sweep needs to classify a
// tracked item: does a file exist, is the item monitored, is it queued.
type ManagerItemStatus struct {
	HasFile   bool
	Monitored bool
	InQueue   bool
}

type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type managerTag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// getOrCreateTag finds a tag by label or creates it. Labels attribute a
// request to its requester inside the manager UI.
func (c *arrClient) getOrCreateTag(ctx context.Context, label string) (int, error) {
	label = strings.ToLower(label)

	var tags []managerTag
	if err := c.getJSON(ctx, "tag", &tags, sharedhttp.DefaultClient); err != nil {
		return 0, err
	}
	for _, t := range tags {
		if strings.EqualFold(t.Label, label) {
			return t.ID, nil
		}
	}

	var created managerTag
	if err := c.postJSON(ctx, "tag", managerTag{Label: label}, &created, sharedhttp.DefaultClient); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// titleSlug builds the simple slug the managers expect on add.
func titleSlug(title string, year int) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "'", "")
	slug = strings.ReplaceAll(slug, ":", "")
	if year > 0 {
		return fmt.Sprintf("%s-%d", slug, year)
	}
	return slug
}
