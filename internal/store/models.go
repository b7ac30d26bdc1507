package store

import "time"

// Publication status values. Anything a site reports is normalized onto these
// before it reaches storage.
const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusHiatus    = "hiatus"
)

// Source records which external site contributed data for a record.
type Source struct {
	Site        string    `json:"site"`
	URL         string    `json:"url"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Manga is the normalized record one title ends up as, no matter how many
// sites it was scraped from. Slug is the unique natural key; two sites whose
// titles normalize to the same slug share one record.
//
// The Uploaded* flags mark fields an admin set by hand. A rescrape never
// overwrites a flagged field.
type Manga struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Author          string    `json:"author,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Status          string    `json:"status,omitempty"`
	Cover           string    `json:"cover,omitempty"`
	Rating          float64   `json:"rating"`
	Views           int64     `json:"views"`
	Sources         []Source  `json:"sources"`
	UploadedCover   bool      `json:"uploadedCover"`
	UploadedSummary bool      `json:"uploadedSummary"`
	UploadedAuthor  bool      `json:"uploadedAuthor"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FindSource returns the source entry for a site, if present.
func (m *Manga) FindSource(siteName string) *Source {
	for i := range m.Sources {
		if m.Sources[i].Site == siteName {
			return &m.Sources[i]
		}
	}
	return nil
}

// Page is one reading page of a chapter.
type Page struct {
	Number int    `json:"number"`
	Image  string `json:"image"`
}

// Chapter belongs to exactly one manga. The (MangaID, Number, Language)
// triple is unique; Number stays a string so "10.5" style labels survive.
// FolderPath is derived from the owning manga's current title and is
// rewritten when the manga is renamed.
type Chapter struct {
	ID         string    `json:"id"`
	MangaID    string    `json:"mangaId"`
	Title      string    `json:"title"`
	Number     string    `json:"number"`
	Language   string    `json:"language"`
	FolderPath string    `json:"folderPath,omitempty"`
	Pages      []Page    `json:"pages"`
	Sources    []Source  `json:"sources"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SiteConfig is per-site operational state.
type SiteConfig struct {
	Name       string    `json:"name"`
	BaseURL    string    `json:"baseUrl,omitempty"`
	Enabled    bool      `json:"enabled"`
	LastScrape time.Time `json:"lastScrape"`
}
