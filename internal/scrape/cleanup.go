package scrape

import (
	"context"
	"strings"

	"github.com/brogergvhs/mangacap/internal/sources"
)

// deadCoverHost is a mirror host that stopped resolving; covers still
// pointing at it can never load again.
const deadCoverHost = "mangadx.org"

// CleanupLogoImages scans the whole catalog for known-bad artifacts: chapter
// pages referencing the placeholder logo asset, and covers on the defunct
// mirror host. Bad pages are stripped, bad covers blanked (the uploaded
// override is cleared too, since a dead link was never a genuine upload).
// Returns the number of records repaired. Run on demand; scheduling is the
// caller's business.
func (s *Service) CleanupLogoImages(ctx context.Context) (int, error) {
	cleaned := 0

	chapters, err := s.store.AllChapters(ctx)
	if err != nil {
		return 0, err
	}
	for _, ch := range chapters {
		if s.stripLogoPages(ctx, ch) {
			cleaned++
		}
	}

	mangas, err := s.store.AllManga(ctx)
	if err != nil {
		return cleaned, err
	}
	for _, m := range mangas {
		if m.Cover == "" || !isDeadCover(m.Cover) {
			continue
		}
		m.Cover = ""
		m.UploadedCover = false
		if err := s.store.SaveManga(ctx, m); err != nil {
			s.log.Errorf("blank dead cover for %s: %v\n", m.Slug, err)
			continue
		}
		cleaned++
	}

	s.log.Infof("cleanup: %d records repaired\n", cleaned)
	return cleaned, nil
}

func isDeadCover(cover string) bool {
	lc := strings.ToLower(cover)
	return strings.Contains(lc, deadCoverHost) || sources.IsLogoImage(lc)
}
