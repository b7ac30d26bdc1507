package scrape

import (
	"context"
	"testing"

	"github.com/brogergvhs/mangacap/internal/store"
	"github.com/brogergvhs/mangacap/internal/ui"
)

func TestCleanupLogoImages(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	dirty := &store.Chapter{
		MangaID:  "m1",
		Number:   "1",
		Language: "en",
		Pages: []store.Page{
			{Number: 1, Image: "https://cdn.test/1/001.jpg"},
			{Number: 2, Image: "https://site.test/logo_200x200.png"},
		},
	}
	clean := &store.Chapter{
		MangaID:  "m1",
		Number:   "2",
		Language: "en",
		Pages:    []store.Page{{Number: 1, Image: "https://cdn.test/2/001.jpg"}},
	}
	for _, ch := range []*store.Chapter{dirty, clean} {
		if err := st.SaveChapter(ctx, ch); err != nil {
			t.Fatal(err)
		}
	}

	deadCover := &store.Manga{
		Title:         "Dead Cover",
		Slug:          "dead-cover",
		Cover:         "https://uploads.mangadx.org/covers/x/cover.jpg",
		UploadedCover: true,
	}
	liveCover := &store.Manga{
		Title: "Live Cover",
		Slug:  "live-cover",
		Cover: "https://uploads.mangadex.org/covers/y/cover.jpg",
	}
	for _, m := range []*store.Manga{deadCover, liveCover} {
		if err := st.SaveManga(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(st, nil, ui.NewLogger(false), 1)

	cleaned, err := svc.CleanupLogoImages(ctx)
	if err != nil {
		t.Fatalf("CleanupLogoImages: %v", err)
	}
	if cleaned != 2 {
		t.Errorf("cleaned = %d, want 2 (one chapter, one cover)", cleaned)
	}

	ch, _ := st.FindChapter(ctx, "m1", "1", "en")
	if len(ch.Pages) != 1 || ch.Pages[0].Image != "https://cdn.test/1/001.jpg" {
		t.Errorf("dirty chapter pages = %+v", ch.Pages)
	}
	if ch.Pages[0].Number != 1 {
		t.Errorf("surviving page not renumbered: %d", ch.Pages[0].Number)
	}

	untouched, _ := st.FindChapter(ctx, "m1", "2", "en")
	if len(untouched.Pages) != 1 {
		t.Errorf("clean chapter modified: %+v", untouched.Pages)
	}

	dead, _ := st.FindMangaBySlug(ctx, "dead-cover")
	if dead.Cover != "" {
		t.Errorf("dead cover kept: %q", dead.Cover)
	}
	if dead.UploadedCover {
		t.Error("uploaded flag survived a dead cover")
	}

	live, _ := st.FindMangaBySlug(ctx, "live-cover")
	if live.Cover == "" {
		t.Error("live mangadex cover was blanked")
	}

	// A second pass finds nothing left to repair.
	again, err := svc.CleanupLogoImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second pass cleaned %d, want 0", again)
	}
}
