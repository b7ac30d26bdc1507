package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS manga (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    author TEXT,
    genres TEXT,              -- JSON array
    summary TEXT,
    status TEXT,
    cover TEXT,
    rating REAL NOT NULL DEFAULT 0,
    views INTEGER NOT NULL DEFAULT 0,
    sources TEXT,             -- JSON array of {site,url,lastUpdated}
    uploaded_cover INTEGER NOT NULL DEFAULT 0,
    uploaded_summary INTEGER NOT NULL DEFAULT 0,
    uploaded_author INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_manga_title ON manga(title);
CREATE INDEX IF NOT EXISTS idx_manga_updated ON manga(updated_at);

CREATE TABLE IF NOT EXISTS chapters (
    id TEXT PRIMARY KEY,
    manga_id TEXT NOT NULL,
    title TEXT NOT NULL,
    number TEXT NOT NULL,
    language TEXT NOT NULL DEFAULT 'en',
    folder_path TEXT,
    pages TEXT,               -- JSON array of {number,image}
    sources TEXT,             -- JSON array of {site,url,lastUpdated}
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(manga_id, number, language),
    FOREIGN KEY (manga_id) REFERENCES manga(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_chapters_manga ON chapters(manga_id);

CREATE TABLE IF NOT EXISTS site_configs (
    name TEXT PRIMARY KEY,
    base_url TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    last_scrape TEXT
);
`

// SQLite implements Store on a local database file. List and struct fields
// live in JSON text columns; the scrape core reads and writes whole records,
// so there is nothing to join on inside them.
type SQLite struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

const mangaColumns = `id, title, slug, author, genres, summary, status, cover,
	rating, views, sources, uploaded_cover, uploaded_summary, uploaded_author,
	created_at, updated_at`

func (s *SQLite) FindMangaBySlug(ctx context.Context, slug string) (*Manga, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mangaColumns+` FROM manga WHERE slug = ?`, slug)
	return scanManga(row)
}

func (s *SQLite) FindMangaByID(ctx context.Context, id string) (*Manga, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mangaColumns+` FROM manga WHERE id = ?`, id)
	return scanManga(row)
}

func (s *SQLite) AllManga(ctx context.Context) ([]*Manga, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mangaColumns+` FROM manga ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Manga
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveManga(ctx context.Context, m *Manga) error {
	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = uuid.NewString()
		m.CreatedAt = now
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}

	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres for %s: %w", m.Slug, err)
	}
	sourcesJSON, err := json.Marshal(m.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources for %s: %w", m.Slug, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO manga (`+mangaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  slug = excluded.slug,
		  author = excluded.author,
		  genres = excluded.genres,
		  summary = excluded.summary,
		  status = excluded.status,
		  cover = excluded.cover,
		  rating = excluded.rating,
		  views = excluded.views,
		  sources = excluded.sources,
		  uploaded_cover = excluded.uploaded_cover,
		  uploaded_summary = excluded.uploaded_summary,
		  uploaded_author = excluded.uploaded_author,
		  updated_at = excluded.updated_at`,
		m.ID, m.Title, m.Slug, m.Author, string(genres), m.Summary, m.Status,
		m.Cover, m.Rating, m.Views, string(sourcesJSON),
		boolInt(m.UploadedCover), boolInt(m.UploadedSummary), boolInt(m.UploadedAuthor),
		m.CreatedAt.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert manga %s: %w", m.Slug, err)
	}
	return nil
}

const chapterColumns = `id, manga_id, title, number, language, folder_path,
	pages, sources, created_at, updated_at`

func (s *SQLite) FindChapter(ctx context.Context, mangaID, number, language string) (*Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters
		 WHERE manga_id = ? AND number = ? AND language = ?`,
		mangaID, number, language)
	return scanChapter(row)
}

func (s *SQLite) ChaptersByManga(ctx context.Context, mangaID string) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE manga_id = ?`, mangaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChapters(rows)
}

func (s *SQLite) AllChapters(ctx context.Context) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chapterColumns+` FROM chapters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChapters(rows)
}

func (s *SQLite) SaveChapter(ctx context.Context, c *Chapter) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
		c.CreatedAt = now
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.Language == "" {
		c.Language = "en"
	}
	c.UpdatedAt = now

	pages, err := json.Marshal(c.Pages)
	if err != nil {
		return fmt.Errorf("marshal pages for chapter %s: %w", c.Number, err)
	}
	sourcesJSON, err := json.Marshal(c.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources for chapter %s: %w", c.Number, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chapters (`+chapterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  folder_path = excluded.folder_path,
		  pages = excluded.pages,
		  sources = excluded.sources,
		  updated_at = excluded.updated_at
		ON CONFLICT(manga_id, number, language) DO UPDATE SET
		  title = excluded.title,
		  folder_path = excluded.folder_path,
		  pages = excluded.pages,
		  sources = excluded.sources,
		  updated_at = excluded.updated_at`,
		c.ID, c.MangaID, c.Title, c.Number, c.Language, c.FolderPath,
		string(pages), string(sourcesJSON),
		c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert chapter %s/%s: %w", c.MangaID, c.Number, err)
	}
	return nil
}

func (s *SQLite) SiteConfigs(ctx context.Context) ([]*SiteConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, base_url, enabled, last_scrape FROM site_configs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SiteConfig
	for rows.Next() {
		var sc SiteConfig
		var baseURL, lastScrape sql.NullString
		var enabled int
		if err := rows.Scan(&sc.Name, &baseURL, &enabled, &lastScrape); err != nil {
			return nil, err
		}
		sc.BaseURL = baseURL.String
		sc.Enabled = enabled != 0
		sc.LastScrape = parseTime(lastScrape.String)
		out = append(out, &sc)
	}
	return out, rows.Err()
}

func (s *SQLite) TouchSiteScrape(ctx context.Context, siteName string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO site_configs (name, enabled, last_scrape) VALUES (?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET last_scrape = excluded.last_scrape`,
		siteName, now)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManga(row rowScanner) (*Manga, error) {
	var m Manga
	var author, genres, summary, status, cover, sourcesJSON sql.NullString
	var upCover, upSummary, upAuthor int
	var createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Title, &m.Slug, &author, &genres, &summary,
		&status, &cover, &m.Rating, &m.Views, &sourcesJSON,
		&upCover, &upSummary, &upAuthor, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	m.Author = author.String
	m.Summary = summary.String
	m.Status = status.String
	m.Cover = cover.String
	m.UploadedCover = upCover != 0
	m.UploadedSummary = upSummary != 0
	m.UploadedAuthor = upAuthor != 0
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)

	if genres.String != "" {
		if err := json.Unmarshal([]byte(genres.String), &m.Genres); err != nil {
			return nil, fmt.Errorf("unmarshal genres for %s: %w", m.Slug, err)
		}
	}
	if sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &m.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources for %s: %w", m.Slug, err)
		}
	}

	return &m, nil
}

func scanChapter(row rowScanner) (*Chapter, error) {
	var c Chapter
	var folderPath, pages, sourcesJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.MangaID, &c.Title, &c.Number, &c.Language,
		&folderPath, &pages, &sourcesJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.FolderPath = folderPath.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)

	if pages.String != "" {
		if err := json.Unmarshal([]byte(pages.String), &c.Pages); err != nil {
			return nil, fmt.Errorf("unmarshal pages for chapter %s: %w", c.ID, err)
		}
	}
	if sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &c.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources for chapter %s: %w", c.ID, err)
		}
	}

	return &c, nil
}

func collectChapters(rows *sql.Rows) ([]*Chapter, error) {
	var out []*Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
