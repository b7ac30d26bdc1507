package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brogergvhs/mangacap/internal/sources"
	"github.com/brogergvhs/mangacap/internal/store"
	"github.com/brogergvhs/mangacap/internal/ui"
)

// Service drives scraping across all registered sites and reconciles the
// results against storage. It is the only writer of manga and chapter
// records.
type Service struct {
	store    store.Store
	registry *sources.Registry
	log      *ui.Logger
	workers  int

	locks sync.Map // reconciliation key -> *sync.Mutex
}

// NewService wires the orchestrator. workers caps in-flight page fetches
// during a backfill; values below 1 mean sequential.
func NewService(st store.Store, reg *sources.Registry, log *ui.Logger, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:    st,
		registry: reg,
		log:      log,
		workers:  workers,
	}
}

// SearchAllSites fans the query out to every registered adapter concurrently.
// A site whose search fails contributes nothing; the rest are unaffected.
// Results come back grouped by site in registry order, each entry tagged with
// its origin site.
func (s *Service) SearchAllSites(ctx context.Context, query string) []sources.MangaSummary {
	siteNames := s.registry.Sites()
	perSite := make([][]sources.MangaSummary, len(siteNames))

	var wg sync.WaitGroup
	for i, name := range siteNames {
		adapter, err := s.registry.Get(name)
		if err != nil {
			continue
		}

		wg.Add(1)
		go func(i int, adapter sources.Adapter) {
			defer wg.Done()
			perSite[i] = adapter.SearchManga(ctx, query)
		}(i, adapter)
	}
	wg.Wait()

	var out []sources.MangaSummary
	for i, results := range perSite {
		for _, r := range results {
			if r.Site == "" {
				r.Site = siteNames[i]
			}
			out = append(out, r)
		}
	}

	s.log.Debugf("search %q: %d results across %d sites\n", query, len(out), len(siteNames))
	return out
}

// ScrapeManga fetches a manga's details from one site and reconciles them
// into storage, then backfills chapters. It returns the persisted manga id,
// or the empty string when the scrape failed; the error return is reserved
// for caller mistakes (an unregistered site), raised before any I/O.
//
// With no existingID, the manga is matched by slug: a title from a new site
// that normalizes to an existing slug gains a source entry on that record
// instead of a duplicate. With an existingID, the stored record is rescraped
// in place, and fields carrying an uploaded override keep their stored value.
//
// Calling twice with the same inputs and unchanged site content changes
// nothing: same id, no duplicate chapters, overrides intact.
func (s *Service) ScrapeManga(ctx context.Context, url, siteName, existingID string) (string, error) {
	adapter, err := s.registry.Get(siteName)
	if err != nil {
		return "", err
	}

	details, err := adapter.GetMangaDetails(ctx, url)
	if err != nil {
		s.log.Errorf("scrape %s from %s: %v\n", url, siteName, err)
		return "", nil
	}

	var manga *store.Manga
	if existingID != "" {
		unlock := s.lock("id:" + existingID)
		manga, err = s.rescrape(ctx, existingID, details, siteName, url)
		unlock()
	} else {
		slug := Slugify(details.Title)
		unlock := s.lock("slug:" + slug)
		manga, err = s.reconcileBySlug(ctx, slug, details, siteName, url)
		unlock()
	}
	if err != nil {
		s.log.Errorf("reconcile %s from %s: %v\n", url, siteName, err)
		return "", nil
	}

	// Chapter backfill failure never rolls back the manga record saved above.
	if err := s.backfillChapters(ctx, manga.ID, url, siteName); err != nil {
		s.log.Errorf("backfill chapters for %s: %v\n", manga.Slug, err)
	}

	if err := s.store.TouchSiteScrape(ctx, siteName); err != nil {
		s.log.Debugf("touch site %s: %v\n", siteName, err)
	}

	return manga.ID, nil
}

// reconcileBySlug handles the new-manga path, which may still land on an
// existing record when the slug matches.
func (s *Service) reconcileBySlug(ctx context.Context, slug string, details sources.MangaSummary, siteName, url string) (*store.Manga, error) {
	now := time.Now().UTC()

	manga, err := s.store.FindMangaBySlug(ctx, slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
		manga = &store.Manga{
			Title:   details.Title,
			Slug:    slug,
			Author:  details.Author,
			Genres:  details.Genres,
			Summary: details.Summary,
			Cover:   details.Cover,
			Status:  details.Status,
			Sources: []store.Source{{Site: siteName, URL: url, LastUpdated: now}},
		}
	case err != nil:
		return nil, err
	default:
		// Same manga discovered through another source, or a repeat of a
		// known one. Only provenance changes here.
		upsertSource(&manga.Sources, siteName, url, now)
		manga.UpdatedAt = now
	}

	if err := s.store.SaveManga(ctx, manga); err != nil {
		return nil, err
	}
	return manga, nil
}

// rescrape merges freshly scraped fields into a known record. The title is
// the record's identity and stays put; renames are an admin action. Fields
// flagged as uploaded keep their stored, human-provided values, and the cover
// is additionally kept when the scrape came back without one.
func (s *Service) rescrape(ctx context.Context, id string, details sources.MangaSummary, siteName, url string) (*store.Manga, error) {
	manga, err := s.store.FindMangaByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if !manga.UploadedAuthor && details.Author != "" {
		manga.Author = details.Author
	}
	if !manga.UploadedSummary && details.Summary != "" {
		manga.Summary = details.Summary
	}
	if !manga.UploadedCover && details.Cover != "" {
		manga.Cover = details.Cover
	}
	if len(details.Genres) > 0 {
		manga.Genres = details.Genres
	}
	if details.Status != "" {
		manga.Status = details.Status
	}

	upsertSource(&manga.Sources, siteName, url, now)
	manga.UpdatedAt = now

	if err := s.store.SaveManga(ctx, manga); err != nil {
		return nil, err
	}
	return manga, nil
}

// upsertSource refreshes the entry for a site or appends a new one.
func upsertSource(sourcesList *[]store.Source, siteName, url string, now time.Time) {
	for i := range *sourcesList {
		if (*sourcesList)[i].Site == siteName {
			(*sourcesList)[i].URL = url
			(*sourcesList)[i].LastUpdated = now
			return
		}
	}
	*sourcesList = append(*sourcesList, store.Source{Site: siteName, URL: url, LastUpdated: now})
}

// lock serializes reconciliation per manga. The slug (or id) lookup-then-save
// sequence is check-then-act against storage; without this, two concurrent
// scrapes of the same title could both miss the lookup and insert twice.
func (s *Service) lock(key string) func() {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
