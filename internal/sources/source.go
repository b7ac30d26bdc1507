package sources

import (
	"context"
	"fmt"
)

// MangaSummary is what a site knows about a manga. Title and URL are the only
// fields every site can produce; everything else is best effort and stays
// empty when the markup doesn't carry it.
type MangaSummary struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Cover   string   `json:"cover,omitempty"`
	Author  string   `json:"author,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Status  string   `json:"status,omitempty"`
	Site    string   `json:"site,omitempty"`
}

// ChapterSummary is one entry of a site's chapter index. Number stays a string
// so labels like "10.5" survive round trips.
type ChapterSummary struct {
	Title  string `json:"title"`
	Number string `json:"number"`
	URL    string `json:"url"`
}

// Page is a single reading page. Number is 1-based in reading order.
type Page struct {
	Number int    `json:"number"`
	Image  string `json:"image"`
}

// Adapter is the contract every site implements. Search and GetPages never
// fail hard: on network or parse trouble they log and return an empty list.
// GetChapters may fail when the index page itself is unreachable.
// GetMangaDetails fails with a *ScrapeError when no title can be extracted,
// since a manga without a title cannot be reconciled.
type Adapter interface {
	Site() string
	SearchManga(ctx context.Context, query string) []MangaSummary
	GetMangaDetails(ctx context.Context, url string) (MangaSummary, error)
	GetChapters(ctx context.Context, mangaURL string) ([]ChapterSummary, error)
	GetPages(ctx context.Context, chapterURL string) []Page
}

// ScrapeError marks an extraction failure on a field the caller cannot
// proceed without.
type ScrapeError struct {
	Site  string
	URL   string
	Field string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: could not extract %s from %s", e.Site, e.Field, e.URL)
}
