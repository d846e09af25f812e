package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Mediarr/models"
)

// SubmitOutcome is what happened to a submitted request.
type SubmitOutcome string

const (
	// OutcomeAvailable means the title is already in the library.
	OutcomeAvailable SubmitOutcome = "available"
	// OutcomeCreated means a new tracked request was created.
	OutcomeCreated SubmitOutcome = "created"
	// OutcomeJoined means the user was attached to an existing request.
	OutcomeJoined SubmitOutcome = "joined"
	// OutcomeDuplicate means the user had already requested this themselves.
	OutcomeDuplicate SubmitOutcome = "duplicate"
)

// MovieManager is the movie-manager surface the submitter drives.
type MovieManager interface {
	Configured() bool
	FindByCatalogID(ctx context.Context, tmdbID int) (int, bool, error)
	AddMovie(ctx context.Context, movie MovieAdd, rootFolder RootFolder, profile QualityProfile, tagIDs []int) (int, error)
	GetOrCreateTag(ctx context.Context, label string) (int, error)
	RootFolders(ctx context.Context) ([]RootFolder, error)
	QualityProfiles(ctx context.Context) ([]QualityProfile, error)
	SearchAndCountReleases(ctx context.Context, id int) (int, error)
}

// SeriesManager is the series-manager surface the submitter drives.
type SeriesManager interface {
	Configured() bool
	FindByCatalogID(ctx context.Context, tvdbID int) (int, bool, error)
	AddSeries(ctx context.Context, series SeriesAdd, rootFolder RootFolder, profile QualityProfile, tagIDs []int) (int, error)
	GetOrCreateTag(ctx context.Context, label string) (int, error)
	RootFolders(ctx context.Context) ([]RootFolder, error)
	QualityProfiles(ctx context.Context) ([]QualityProfile, error)
	SearchAndCountReleases(ctx context.Context, id int) (int, error)
}

// LibraryOracle answers "is this already watchable".
type LibraryOracle interface {
	Configured() bool
	InLibrary(ctx context.Context, title string, year int, kind models.MediaKind) (bool, error)
}

// CatalogResolver maps a TMDB series id to the TVDB id the series manager
// keys on.
type CatalogResolver interface {
	Configured() bool
	ResolveTVDBID(ctx context.Context, tmdbID int) (int, error)
}

// Submission is one user-initiated request before any backend work.
type Submission struct {
	Kind        models.MediaKind
	Title       string
	Year        int
	CatalogID   int // TMDB id
	ReleaseDate string
	UserID      int64
	DisplayName string
}

// Submitted reports the end-to-end result, including how many candidate
// releases the immediate search found (new adds only, best-effort).
type Submitted struct {
	Outcome      SubmitOutcome
	Record       models.RequestRecord
	ReleaseCount int
}

// Submitter runs the full submission flow: library-presence check,
// duplicate detection, manager add with requester attribution, then request
// tracking. It owns the ordering so a duplicate never costs a manager add.
type Submitter struct {
	tracker  *RequestTracker
	movies   MovieManager
	series   SeriesManager
	library  LibraryOracle
	resolver CatalogResolver
}

func NewSubmitter(tracker *RequestTracker, movies MovieManager, series SeriesManager, library LibraryOracle, resolver CatalogResolver) *Submitter {
	return &Submitter{
		tracker:  tracker,
		movies:   movies,
		series:   series,
		library:  library,
		resolver: resolver,
	}
}

// Submit processes one request end to end.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (Submitted, error) {
	if sub.CatalogID == 0 {
		return Submitted{}, fmt.Errorf("request for %q has no catalog id", sub.Title)
	}

	// Already watchable beats everything else. An oracle failure is not a
	// reason to refuse the request.
	if s.library != nil && s.library.Configured() {
		inLibrary, err := s.library.InLibrary(ctx, sub.Title, sub.Year, sub.Kind)
		if err != nil {
			slog.Warn("Library check failed, continuing with request", "title", sub.Title, "error", err)
		} else if inLibrary {
			slog.Info("Request already in library", "title", sub.Title, "user", sub.DisplayName)
			return Submitted{Outcome: OutcomeAvailable}, nil
		}
	}

	// An active duplicate joins the existing record without touching the
	// managers at all.
	if existing, ok := s.tracker.Existing(sub.Kind, sub.CatalogID); ok {
		result, err := s.tracker.SubmitOrJoin(SubmitParams{
			Kind:        sub.Kind,
			Title:       existing.Title,
			CatalogID:   sub.CatalogID,
			UserID:      sub.UserID,
			DisplayName: sub.DisplayName,
		})
		if err != nil {
			return Submitted{}, err
		}
		outcome := OutcomeDuplicate
		if result.Joined {
			outcome = OutcomeJoined
		}
		return Submitted{Outcome: outcome, Record: result.Record}, nil
	}

	var (
		downloadID      int
		seriesCatalogID int
		releaseCount    int
		err             error
	)
	if sub.Kind == models.MediaSeries {
		downloadID, seriesCatalogID, releaseCount, err = s.addSeries(ctx, sub)
	} else {
		downloadID, releaseCount, err = s.addMovie(ctx, sub)
	}
	if err != nil {
		return Submitted{}, err
	}

	result, err := s.tracker.SubmitOrJoin(SubmitParams{
		Kind:            sub.Kind,
		Title:           sub.Title,
		Year:            sub.Year,
		CatalogID:       sub.CatalogID,
		SeriesCatalogID: seriesCatalogID,
		DownloadID:      downloadID,
		ReleaseDate:     sub.ReleaseDate,
		UserID:          sub.UserID,
		DisplayName:     sub.DisplayName,
	})
	if err != nil {
		return Submitted{}, err
	}
	return Submitted{Outcome: OutcomeCreated, Record: result.Record, ReleaseCount: releaseCount}, nil
}

func (s *Submitter) addMovie(ctx context.Context, sub Submission) (int, int, error) {
	if s.movies == nil || !s.movies.Configured() {
		return 0, 0, fmt.Errorf("%w: movie manager", ErrNotConfigured)
	}

	if id, found, err := s.movies.FindByCatalogID(ctx, sub.CatalogID); err != nil {
		return 0, 0, err
	} else if found {
		slog.Info("Movie already in manager", "title", sub.Title, "manager_id", id)
		return id, 0, nil
	}

	rootFolder, profile, err := pickDefaults(ctx, s.movies.RootFolders, s.movies.QualityProfiles)
	if err != nil {
		return 0, 0, err
	}
	tagIDs := s.requesterTags(ctx, s.movies.GetOrCreateTag, sub.DisplayName)

	id, err := s.movies.AddMovie(ctx, MovieAdd{
		TMDBID:      sub.CatalogID,
		Title:       sub.Title,
		Year:        sub.Year,
		ReleaseDate: sub.ReleaseDate,
	}, rootFolder, profile, tagIDs)
	if err != nil {
		return 0, 0, err
	}

	count, err := s.movies.SearchAndCountReleases(ctx, id)
	if err != nil {
		slog.Warn("Release search failed after add", "title", sub.Title, "error", err)
		count = 0
	}
	return id, count, nil
}

func (s *Submitter) addSeries(ctx context.Context, sub Submission) (int, int, int, error) {
	if s.series == nil || !s.series.Configured() {
		return 0, 0, 0, fmt.Errorf("%w: series manager", ErrNotConfigured)
	}
	if s.resolver == nil || !s.resolver.Configured() {
		return 0, 0, 0, fmt.Errorf("%w: catalog resolver", ErrNotConfigured)
	}

	tvdbID, err := s.resolver.ResolveTVDBID(ctx, sub.CatalogID)
	if err != nil {
		return 0, 0, 0, err
	}
	if tvdbID == 0 {
		return 0, 0, 0, fmt.Errorf("no TVDB id known for %q", sub.Title)
	}

	if id, found, err := s.series.FindByCatalogID(ctx, tvdbID); err != nil {
		return 0, 0, 0, err
	} else if found {
		slog.Info("Series already in manager", "title", sub.Title, "manager_id", id)
		return id, tvdbID, 0, nil
	}

	rootFolder, profile, err := pickDefaults(ctx, s.series.RootFolders, s.series.QualityProfiles)
	if err != nil {
		return 0, 0, 0, err
	}
	tagIDs := s.requesterTags(ctx, s.series.GetOrCreateTag, sub.DisplayName)

	id, err := s.series.AddSeries(ctx, SeriesAdd{
		TVDBID:       tvdbID,
		Title:        sub.Title,
		Year:         sub.Year,
		FirstAirDate: sub.ReleaseDate,
	}, rootFolder, profile, tagIDs)
	if err != nil {
		return 0, 0, 0, err
	}

	count, err := s.series.SearchAndCountReleases(ctx, id)
	if err != nil {
		slog.Warn("Release search failed after add", "title", sub.Title, "error", err)
		count = 0
	}
	return id, tvdbID, count, nil
}

// pickDefaults chooses the first root folder and quality profile. Empty
// lists mean the manager is not set up to accept adds.
func pickDefaults(ctx context.Context, folders func(context.Context) ([]RootFolder, error), profiles func(context.Context) ([]QualityProfile, error)) (RootFolder, QualityProfile, error) {
	fs, err := folders(ctx)
	if err != nil {
		return RootFolder{}, QualityProfile{}, err
	}
	if len(fs) == 0 {
		return RootFolder{}, QualityProfile{}, fmt.Errorf("%w: no root folders", ErrNotConfigured)
	}
	ps, err := profiles(ctx)
	if err != nil {
		return RootFolder{}, QualityProfile{}, err
	}
	if len(ps) == 0 {
		return RootFolder{}, QualityProfile{}, fmt.Errorf("%w: no quality profiles", ErrNotConfigured)
	}
	return fs[0], ps[0], nil
}

// requesterTags resolves the attribution tag for the requesting user.
// Best-effort: adds proceed untagged when the tag call fails.
func (s *Submitter) requesterTags(ctx context.Context, getOrCreate func(context.Context, string) (int, error), displayName string) []int {
	label := TagLabel(displayName)
	if label == "" {
		return nil
	}
	id, err := getOrCreate(ctx, label)
	if err != nil {
		slog.Warn("Failed to resolve requester tag", "label", label, "error", err)
		return nil
	}
	return []int{id}
}

// TagLabel builds the manager tag for a requester, "mediarr-<name>".
func TagLabel(displayName string) string {
	name := strings.ToLower(strings.TrimSpace(displayName))
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, " ", "-")
	return "mediarr-" + name
}
