package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brogergvhs/mangacap/internal/sources"
	"github.com/brogergvhs/mangacap/internal/store"
)

const chapterLanguage = "en"

// backfillChapters brings storage up to date with a site's chapter index for
// one manga. Per-chapter failures are skipped, never fatal; only an
// unreachable chapter index aborts the whole pass.
func (s *Service) backfillChapters(ctx context.Context, mangaID, mangaURL, siteName string) error {
	adapter, err := s.registry.Get(siteName)
	if err != nil {
		return err
	}

	chapterList, err := adapter.GetChapters(ctx, mangaURL)
	if err != nil {
		return err
	}

	manga, err := s.store.FindMangaByID(ctx, mangaID)
	if err != nil {
		return err
	}

	// Folder paths derive from the manga's current title, so a rename is
	// repaired here before any new chapters land.
	if err := s.healFolderPaths(ctx, manga); err != nil {
		s.log.Errorf("heal folder paths for %s: %v\n", manga.Slug, err)
	}

	var missing []sources.ChapterSummary
	for _, ch := range chapterList {
		existing, err := s.store.FindChapter(ctx, mangaID, ch.Number, chapterLanguage)
		switch {
		case errors.Is(err, store.ErrNotFound):
			missing = append(missing, ch)
		case err != nil:
			s.log.Errorf("lookup chapter %s of %s: %v\n", ch.Number, manga.Slug, err)
		default:
			// Already stored: never re-fetched for pages, only checked for
			// stale placeholder artifacts.
			if s.stripLogoPages(ctx, existing) {
				s.log.Infof("stripped placeholder pages from %s chapter %s\n", manga.Slug, existing.Number)
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}

	// Page fetches are the expensive part; cap how many run at once per
	// backfill so a big catalog doesn't hammer the site.
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0

	for _, ch := range missing {
		wg.Add(1)
		sem <- struct{}{}
		go func(ch sources.ChapterSummary) {
			defer wg.Done()
			defer func() { <-sem }()

			pages := adapter.GetPages(ctx, ch.URL)

			chapter := &store.Chapter{
				MangaID:    mangaID,
				Title:      ch.Title,
				Number:     ch.Number,
				Language:   chapterLanguage,
				FolderPath: folderPath(manga.Title, ch.Number),
				Pages:      toStorePages(pages),
				Sources:    []store.Source{{Site: siteName, URL: ch.URL, LastUpdated: time.Now().UTC()}},
			}

			if err := s.store.SaveChapter(ctx, chapter); err != nil {
				s.log.Errorf("save chapter %s of %s: %v\n", ch.Number, manga.Slug, err)
				return
			}

			mu.Lock()
			added++
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	if added > 0 {
		s.log.Infof("%s: %d new chapters\n", manga.Slug, added)
		manga.UpdatedAt = time.Now().UTC()
		if err := s.store.SaveManga(ctx, manga); err != nil {
			s.log.Errorf("touch manga %s: %v\n", manga.Slug, err)
		}
	}

	return nil
}

// healFolderPaths rewrites any stored folder path whose base segment no
// longer matches the manga's current title.
func (s *Service) healFolderPaths(ctx context.Context, manga *store.Manga) error {
	existing, err := s.store.ChaptersByManga(ctx, manga.ID)
	if err != nil {
		return err
	}

	for _, ch := range existing {
		if ch.FolderPath != "" && folderBase(ch.FolderPath) == manga.Title {
			continue
		}
		ch.FolderPath = folderPath(manga.Title, ch.Number)
		if err := s.store.SaveChapter(ctx, ch); err != nil {
			s.log.Errorf("rewrite folder path for chapter %s: %v\n", ch.Number, err)
		}
	}

	return nil
}

// stripLogoPages removes placeholder pages from a stored chapter and
// persists the cleaned list. Reports whether anything was removed.
func (s *Service) stripLogoPages(ctx context.Context, ch *store.Chapter) bool {
	cleaned := make([]store.Page, 0, len(ch.Pages))
	for _, p := range ch.Pages {
		if sources.IsLogoImage(p.Image) {
			continue
		}
		p.Number = len(cleaned) + 1
		cleaned = append(cleaned, p)
	}

	if len(cleaned) == len(ch.Pages) {
		return false
	}

	ch.Pages = cleaned
	if err := s.store.SaveChapter(ctx, ch); err != nil {
		s.log.Errorf("save cleaned chapter %s: %v\n", ch.Number, err)
		return false
	}
	return true
}

func toStorePages(pages []sources.Page) []store.Page {
	out := make([]store.Page, len(pages))
	for i, p := range pages {
		out[i] = store.Page{Number: p.Number, Image: p.Image}
	}
	return out
}
