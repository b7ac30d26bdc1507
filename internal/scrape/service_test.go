package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brogergvhs/mangacap/internal/sources"
	"github.com/brogergvhs/mangacap/internal/store"
	"github.com/brogergvhs/mangacap/internal/ui"
)

// memStore is an in-memory Store with the same upsert semantics as the
// SQLite implementation: records are copied on the way in and out.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	manga    map[string]*store.Manga
	chapters map[string]*store.Chapter
	sites    map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		manga:    map[string]*store.Manga{},
		chapters: map[string]*store.Chapter{},
		sites:    map[string]time.Time{},
	}
}

func (s *memStore) newID() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func copyManga(m *store.Manga) *store.Manga {
	out := *m
	out.Genres = append([]string(nil), m.Genres...)
	out.Sources = append([]store.Source(nil), m.Sources...)
	return &out
}

func copyChapter(c *store.Chapter) *store.Chapter {
	out := *c
	out.Pages = append([]store.Page(nil), c.Pages...)
	out.Sources = append([]store.Source(nil), c.Sources...)
	return &out
}

func (s *memStore) FindMangaBySlug(_ context.Context, slug string) (*store.Manga, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.manga {
		if m.Slug == slug {
			return copyManga(m), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) FindMangaByID(_ context.Context, id string) (*store.Manga, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.manga[id]; ok {
		return copyManga(m), nil
	}
	return nil, store.ErrNotFound
}

func (s *memStore) SaveManga(_ context.Context, m *store.Manga) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = s.newID()
		m.CreatedAt = time.Now().UTC()
	}
	s.manga[m.ID] = copyManga(m)
	return nil
}

func (s *memStore) AllManga(_ context.Context) ([]*store.Manga, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Manga
	for _, m := range s.manga {
		out = append(out, copyManga(m))
	}
	return out, nil
}

func chapterKey(mangaID, number, language string) string {
	return mangaID + "|" + number + "|" + language
}

func (s *memStore) FindChapter(_ context.Context, mangaID, number, language string) (*store.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chapters[chapterKey(mangaID, number, language)]; ok {
		return copyChapter(c), nil
	}
	return nil, store.ErrNotFound
}

func (s *memStore) SaveChapter(_ context.Context, c *store.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chapterKey(c.MangaID, c.Number, c.Language)
	if prev, ok := s.chapters[key]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	} else if c.ID == "" {
		c.ID = s.newID()
		c.CreatedAt = time.Now().UTC()
	}
	s.chapters[key] = copyChapter(c)
	return nil
}

func (s *memStore) ChaptersByManga(_ context.Context, mangaID string) ([]*store.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Chapter
	for _, c := range s.chapters {
		if c.MangaID == mangaID {
			out = append(out, copyChapter(c))
		}
	}
	return out, nil
}

func (s *memStore) AllChapters(_ context.Context) ([]*store.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Chapter
	for _, c := range s.chapters {
		out = append(out, copyChapter(c))
	}
	return out, nil
}

func (s *memStore) SiteConfigs(_ context.Context) ([]*store.SiteConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.SiteConfig
	for name, ts := range s.sites {
		out = append(out, &store.SiteConfig{Name: name, Enabled: true, LastScrape: ts})
	}
	return out, nil
}

func (s *memStore) TouchSiteScrape(_ context.Context, siteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[siteName] = time.Now().UTC()
	return nil
}

func (s *memStore) Close() error { return nil }

// fakeAdapter serves canned responses and counts calls.
type fakeAdapter struct {
	name        string
	search      []sources.MangaSummary
	details     sources.MangaSummary
	detailsErr  error
	chapters    []sources.ChapterSummary
	chaptersErr error
	pages       map[string][]sources.Page

	detailsCalls atomic.Int32
	pagesCalls   atomic.Int32
}

func (f *fakeAdapter) Site() string { return f.name }

func (f *fakeAdapter) SearchManga(context.Context, string) []sources.MangaSummary {
	return f.search
}

func (f *fakeAdapter) GetMangaDetails(context.Context, string) (sources.MangaSummary, error) {
	f.detailsCalls.Add(1)
	if f.detailsErr != nil {
		return sources.MangaSummary{}, f.detailsErr
	}
	return f.details, nil
}

func (f *fakeAdapter) GetChapters(context.Context, string) ([]sources.ChapterSummary, error) {
	if f.chaptersErr != nil {
		return nil, f.chaptersErr
	}
	return f.chapters, nil
}

func (f *fakeAdapter) GetPages(_ context.Context, chapterURL string) []sources.Page {
	f.pagesCalls.Add(1)
	return f.pages[chapterURL]
}

func newTestService(st store.Store, adapters ...sources.Adapter) *Service {
	return NewService(st, sources.NewRegistryWith(adapters...), ui.NewLogger(false), 2)
}

func onePieceAdapter(name string) *fakeAdapter {
	return &fakeAdapter{
		name: name,
		details: sources.MangaSummary{
			Title:   "One Piece",
			URL:     "https://" + name + ".test/manga/one-piece",
			Author:  "Eiichiro Oda",
			Genres:  []string{"Action", "Adventure"},
			Summary: "Pirates.",
			Cover:   "https://" + name + ".test/covers/op.jpg",
			Status:  store.StatusOngoing,
			Site:    name,
		},
		chapters: []sources.ChapterSummary{
			{Title: "Chapter 1", Number: "1", URL: "https://" + name + ".test/ch/1"},
			{Title: "Chapter 2", Number: "2", URL: "https://" + name + ".test/ch/2"},
		},
		pages: map[string][]sources.Page{
			"https://" + name + ".test/ch/1": {{Number: 1, Image: "https://cdn.test/1/001.jpg"}},
			"https://" + name + ".test/ch/2": {{Number: 1, Image: "https://cdn.test/2/001.jpg"}},
		},
	}
}

func TestScrapeMangaCreatesRecordAndChapters(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	svc := newTestService(st, site)

	id, err := svc.ScrapeManga(context.Background(), site.details.URL, "mgeko", "")
	if err != nil {
		t.Fatalf("ScrapeManga: %v", err)
	}
	if id == "" {
		t.Fatal("ScrapeManga returned empty id on success")
	}

	m, err := st.FindMangaBySlug(context.Background(), "one-piece")
	if err != nil {
		t.Fatalf("manga not stored: %v", err)
	}
	if m.ID != id {
		t.Errorf("returned id %q != stored id %q", id, m.ID)
	}
	if m.Author != "Eiichiro Oda" || m.Status != store.StatusOngoing {
		t.Errorf("stored manga = %+v", m)
	}
	if len(m.Sources) != 1 || m.Sources[0].Site != "mgeko" {
		t.Errorf("sources = %+v", m.Sources)
	}

	chapters, _ := st.ChaptersByManga(context.Background(), id)
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(chapters))
	}
	for _, ch := range chapters {
		if ch.Language != "en" {
			t.Errorf("chapter %s language = %q", ch.Number, ch.Language)
		}
		if want := "One Piece/Chapter " + ch.Number; ch.FolderPath != want {
			t.Errorf("chapter %s folder path = %q, want %q", ch.Number, ch.FolderPath, want)
		}
		if len(ch.Pages) != 1 {
			t.Errorf("chapter %s has %d pages", ch.Number, len(ch.Pages))
		}
	}

	if ts, ok := st.sites["mgeko"]; !ok || ts.IsZero() {
		t.Error("site scrape timestamp not touched")
	}
}

func TestScrapeMangaIsIdempotent(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	svc := newTestService(st, site)

	ctx := context.Background()
	first, _ := svc.ScrapeManga(ctx, site.details.URL, "mgeko", "")
	fetchesAfterFirst := site.pagesCalls.Load()

	second, err := svc.ScrapeManga(ctx, site.details.URL, "mgeko", "")
	if err != nil {
		t.Fatalf("second scrape: %v", err)
	}
	if second != first {
		t.Errorf("second scrape id = %q, want %q", second, first)
	}

	chapters, _ := st.ChaptersByManga(ctx, first)
	if len(chapters) != 2 {
		t.Errorf("got %d chapters after rescrape, want 2", len(chapters))
	}

	m, _ := st.FindMangaByID(ctx, first)
	if len(m.Sources) != 1 {
		t.Errorf("sources grew to %d on repeat scrape", len(m.Sources))
	}

	if site.pagesCalls.Load() != fetchesAfterFirst {
		t.Errorf("existing chapters re-fetched: %d page calls after second scrape, had %d",
			site.pagesCalls.Load(), fetchesAfterFirst)
	}
}

func TestScrapeMangaMergesAcrossSitesBySlug(t *testing.T) {
	st := newMemStore()
	siteA := onePieceAdapter("mgeko")
	siteB := onePieceAdapter("thunderscans")
	svc := newTestService(st, siteA, siteB)

	ctx := context.Background()
	idA, _ := svc.ScrapeManga(ctx, siteA.details.URL, "mgeko", "")
	idB, _ := svc.ScrapeManga(ctx, siteB.details.URL, "thunderscans", "")

	if idA != idB {
		t.Fatalf("same title produced two records: %q and %q", idA, idB)
	}

	m, _ := st.FindMangaByID(ctx, idA)
	if len(m.Sources) != 2 {
		t.Fatalf("sources = %+v, want one per site", m.Sources)
	}
	if m.FindSource("mgeko") == nil || m.FindSource("thunderscans") == nil {
		t.Errorf("missing a source entry: %+v", m.Sources)
	}

	mangas, _ := st.AllManga(ctx)
	if len(mangas) != 1 {
		t.Errorf("catalog holds %d records, want 1", len(mangas))
	}
}

func TestScrapeMangaUnknownSiteFailsBeforeAnyFetch(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	svc := newTestService(st, site)

	id, err := svc.ScrapeManga(context.Background(), "https://x.test/m", "nosuchsite", "")
	if !errors.Is(err, sources.ErrAdapterNotFound) {
		t.Fatalf("err = %v, want ErrAdapterNotFound", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
	if site.detailsCalls.Load() != 0 {
		t.Error("adapter was called for an unknown site name")
	}
}

func TestScrapeMangaSwallowsScrapeFailure(t *testing.T) {
	st := newMemStore()
	site := &fakeAdapter{
		name:       "mgeko",
		detailsErr: &sources.ScrapeError{Site: "mgeko", URL: "https://x.test/m", Field: "title"},
	}
	svc := newTestService(st, site)

	id, err := svc.ScrapeManga(context.Background(), "https://x.test/m", "mgeko", "")
	if err != nil {
		t.Fatalf("scrape failure must not surface as error, got %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty on failure", id)
	}
	if mangas, _ := st.AllManga(context.Background()); len(mangas) != 0 {
		t.Error("failed scrape persisted a record")
	}
}

func TestRescrapeKeepsUploadedFieldsAndTitle(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	svc := newTestService(st, site)
	ctx := context.Background()

	id, _ := svc.ScrapeManga(ctx, site.details.URL, "mgeko", "")

	m, _ := st.FindMangaByID(ctx, id)
	m.Title = "One Piece (Official)"
	m.Cover = "https://uploads.test/custom-cover.png"
	m.UploadedCover = true
	m.Summary = "Hand-written synopsis."
	m.UploadedSummary = true
	if err := st.SaveManga(ctx, m); err != nil {
		t.Fatal(err)
	}

	site.details.Author = "Oda, Eiichiro"
	if _, err := svc.ScrapeManga(ctx, site.details.URL, "mgeko", id); err != nil {
		t.Fatalf("rescrape: %v", err)
	}

	got, _ := st.FindMangaByID(ctx, id)
	if got.Title != "One Piece (Official)" {
		t.Errorf("rescrape changed the title to %q", got.Title)
	}
	if got.Cover != "https://uploads.test/custom-cover.png" {
		t.Errorf("rescrape overwrote uploaded cover: %q", got.Cover)
	}
	if got.Summary != "Hand-written synopsis." {
		t.Errorf("rescrape overwrote uploaded summary: %q", got.Summary)
	}
	if got.Author != "Oda, Eiichiro" {
		t.Errorf("unflagged author not refreshed: %q", got.Author)
	}
}

func TestRescrapeIgnoresEmptyScrapedFields(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	svc := newTestService(st, site)
	ctx := context.Background()

	id, _ := svc.ScrapeManga(ctx, site.details.URL, "mgeko", "")

	site.details.Cover = ""
	site.details.Author = ""
	if _, err := svc.ScrapeManga(ctx, site.details.URL, "mgeko", id); err != nil {
		t.Fatalf("rescrape: %v", err)
	}

	got, _ := st.FindMangaByID(ctx, id)
	if got.Cover == "" {
		t.Error("empty scraped cover blanked the stored one")
	}
	if got.Author == "" {
		t.Error("empty scraped author blanked the stored one")
	}
}

func TestSearchAllSitesIsolatesFailures(t *testing.T) {
	st := newMemStore()
	working := &fakeAdapter{
		name: "mgeko",
		search: []sources.MangaSummary{
			{Title: "One Piece", URL: "https://mgeko.test/op"},
			{Title: "Naruto", URL: "https://mgeko.test/n", Site: "mgeko"},
		},
	}
	broken := &fakeAdapter{name: "thunderscans"}
	svc := newTestService(st, working, broken)

	got := svc.SearchAllSites(context.Background(), "x")
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 from the working site", len(got))
	}
	for _, r := range got {
		if r.Site != "mgeko" {
			t.Errorf("result %q not tagged with origin site: %q", r.Title, r.Site)
		}
	}
}

func TestBackfillHealsStaleFolderPaths(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	svc := newTestService(st, site)
	ctx := context.Background()

	id, _ := svc.ScrapeManga(ctx, site.details.URL, "mgeko", "")

	// Simulate a rename done outside the scrape path.
	m, _ := st.FindMangaByID(ctx, id)
	m.Title = "One Piece Remastered"
	if err := st.SaveManga(ctx, m); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ScrapeManga(ctx, site.details.URL, "mgeko", id); err != nil {
		t.Fatalf("rescrape: %v", err)
	}

	chapters, _ := st.ChaptersByManga(ctx, id)
	for _, ch := range chapters {
		if want := "One Piece Remastered/Chapter " + ch.Number; ch.FolderPath != want {
			t.Errorf("chapter %s folder path = %q, want %q", ch.Number, ch.FolderPath, want)
		}
	}
}

func TestBackfillStripsLogoFromStoredChapters(t *testing.T) {
	st := newMemStore()
	site := onePieceAdapter("mgeko")
	site.pages["https://mgeko.test/ch/1"] = []sources.Page{
		{Number: 1, Image: "https://cdn.test/1/001.jpg"},
		{Number: 2, Image: "https://mgeko.test/static/logo_200x200.png"},
		{Number: 3, Image: "https://cdn.test/1/002.jpg"},
	}
	svc := newTestService(st, site)
	ctx := context.Background()

	id, _ := svc.ScrapeManga(ctx, site.details.URL, "mgeko", "")

	// First pass stored the logo page. The next backfill repairs it without
	// re-fetching.
	fetches := site.pagesCalls.Load()
	if _, err := svc.ScrapeManga(ctx, site.details.URL, "mgeko", ""); err != nil {
		t.Fatalf("second scrape: %v", err)
	}
	if site.pagesCalls.Load() != fetches {
		t.Error("repair pass re-fetched pages")
	}

	ch, err := st.FindChapter(ctx, id, "1", "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Pages) != 2 {
		t.Fatalf("pages = %+v, want logo stripped", ch.Pages)
	}
	for i, p := range ch.Pages {
		if p.Number != i+1 {
			t.Errorf("page %d not renumbered: %d", i, p.Number)
		}
	}
}
