package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/mangacap/internal/ui"
)

// thunderScans scrapes en-thunderscans.com, a MangaStream-theme site. The
// theme exposes reasonably stable class names (.bsx listings, .ts-main-image
// reader pages) but metadata placement drifts between releases, hence the
// longer cascades on the detail page.
type thunderScans struct {
	site
}

func newThunderScans(client *http.Client, log *ui.Logger) *thunderScans {
	return &thunderScans{site{
		name:    "thunderscans",
		baseURL: "https://en-thunderscans.com",
		client:  client,
		log:     log,
	}}
}

func (t *thunderScans) SearchManga(ctx context.Context, query string) []MangaSummary {
	target := t.baseURL + "/?s=" + url.QueryEscape(query)
	doc, err := t.fetchDOM(ctx, target)
	if err != nil {
		t.log.Errorf("thunderscans: search %q: %v\n", query, err)
		return nil
	}

	var out []MangaSummary
	doc.Find(".bs .bsx").Each(func(_ int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(".bigor .tt").First().Text())
		href, _ := el.Find("a").First().Attr("href")
		if title == "" || href == "" {
			return
		}

		out = append(out, MangaSummary{
			Title: title,
			URL:   resolveURL(t.baseURL, href),
			Cover: resolveURL(t.baseURL, imageSrc(el.Find(".limit img").First())),
			Site:  t.name,
		})
	})

	return out
}

func (t *thunderScans) GetMangaDetails(ctx context.Context, mangaURL string) (MangaSummary, error) {
	doc, err := t.fetchDOM(ctx, mangaURL)
	if err != nil {
		return MangaSummary{}, err
	}

	title := firstNonEmpty(doc,
		selText(".entry-title"),
		selText(".postbody h1"),
	)
	if title == "" {
		return MangaSummary{}, &ScrapeError{Site: t.name, URL: mangaURL, Field: "title"}
	}

	cover := firstNonEmpty(doc,
		selAttr(".thumb img", "src"),
		selAttr(".wp-post-image", "src"),
	)

	summary := firstNonEmpty(doc,
		selText(".entry-content p"),
		selText(".summary .desc"),
	)

	author := firstNonEmpty(doc,
		selText(".author-content"),
		func(doc *goquery.Document) string {
			var found string
			doc.Find(".fmed, .tsinfo .imptdt").EachWithBreak(func(_ int, el *goquery.Selection) bool {
				if !strings.Contains(el.Text(), "Author") {
					return true
				}
				if v := strings.TrimSpace(el.Find("b, i").First().Text()); v != "" {
					found = v
					return false
				}
				return true
			})
			return found
		},
	)

	var genres []string
	seen := map[string]bool{}
	doc.Find(".mgen a, .genre-info a").Each(func(_ int, el *goquery.Selection) {
		g := strings.TrimSpace(el.Text())
		if g != "" && !seen[g] {
			seen[g] = true
			genres = append(genres, g)
		}
	})

	status := normalizeStatus(firstNonEmpty(doc,
		selText(".status .value"),
		func(doc *goquery.Document) string {
			var found string
			doc.Find(".tsinfo .imptdt").EachWithBreak(func(_ int, el *goquery.Selection) bool {
				if strings.Contains(el.Text(), "Status") {
					found = el.Find("i").First().Text()
					return false
				}
				return true
			})
			return found
		},
	))
	if status == "" {
		// This theme shows a status badge on every series page; an ongoing
		// series sometimes has no textual value at all.
		status = "ongoing"
	}

	return MangaSummary{
		Title:   title,
		URL:     mangaURL,
		Author:  author,
		Genres:  genres,
		Summary: summary,
		Cover:   resolveURL(t.baseURL, cover),
		Status:  status,
		Site:    t.name,
	}, nil
}

func (t *thunderScans) GetChapters(ctx context.Context, mangaURL string) ([]ChapterSummary, error) {
	doc, err := t.fetchDOM(ctx, mangaURL)
	if err != nil {
		return nil, err
	}

	var out []ChapterSummary
	doc.Find("a .chbox").Each(func(_ int, box *goquery.Selection) {
		link := box.Parent()
		href, _ := link.Attr("href")
		label := strings.TrimSpace(box.Find(".chapternum").Text())
		if href == "" || label == "" {
			return
		}

		out = append(out, ChapterSummary{
			Title:  label,
			Number: chapterNumber(label, len(out)),
			URL:    resolveURL(t.baseURL, href),
		})
	})

	sortChapters(out)
	return out, nil
}

func (t *thunderScans) GetPages(ctx context.Context, chapterURL string) []Page {
	doc, err := t.fetchPageDOM(ctx, chapterURL)
	if err != nil {
		t.log.Errorf("thunderscans: pages %s: %v\n", chapterURL, err)
		return nil
	}

	col := newPageCollector(chapterURL)
	doc.Find(".ts-main-image").Each(func(_ int, img *goquery.Selection) {
		col.add(imageSrc(img))
	})

	if len(col.pages) == 0 {
		doc.Find("img").Each(func(_ int, img *goquery.Selection) {
			col.add(imageSrc(img))
		})
	}

	return col.pages
}
