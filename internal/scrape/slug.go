package scrape

import (
	"regexp"
	"strings"
)

var reNonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the unique natural key for a manga from its title:
// lowercased, runs of anything outside [a-z0-9] collapsed to one hyphen, no
// leading or trailing hyphen. Deterministic, so the same title always lands
// on the same record no matter which site it was scraped from.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = reNonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// folderPath is the human-readable organization path for a chapter, derived
// from the owning manga's current title. Re-derived on every backfill so a
// rename heals stale paths.
func folderPath(mangaTitle, number string) string {
	if mangaTitle == "" {
		mangaTitle = "Unknown"
	}
	return mangaTitle + "/Chapter " + number
}

// folderBase returns the manga-title segment of a stored folder path.
func folderBase(path string) string {
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}
