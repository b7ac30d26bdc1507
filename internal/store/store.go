package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every Find* when no record matches.
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface the scrape core consumes. Save* upsert:
// a record with an ID is updated in place, one without is inserted and given
// an ID.
type Store interface {
	FindMangaBySlug(ctx context.Context, slug string) (*Manga, error)
	FindMangaByID(ctx context.Context, id string) (*Manga, error)
	SaveManga(ctx context.Context, m *Manga) error
	AllManga(ctx context.Context) ([]*Manga, error)

	FindChapter(ctx context.Context, mangaID, number, language string) (*Chapter, error)
	SaveChapter(ctx context.Context, c *Chapter) error
	ChaptersByManga(ctx context.Context, mangaID string) ([]*Chapter, error)
	AllChapters(ctx context.Context) ([]*Chapter, error)

	SiteConfigs(ctx context.Context) ([]*SiteConfig, error)
	TouchSiteScrape(ctx context.Context, siteName string) error

	Close() error
}
