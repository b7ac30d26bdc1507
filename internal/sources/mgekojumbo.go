package sources

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/mangacap/internal/ui"
)

var reJumboChapterSlug = regexp.MustCompile(`(?i)chapter-(\d+(?:\.\d+)?)-`)

// mgekoJumbo scrapes www.mgeko.cc, the mirror with the jumbo chapter index.
// Same family as mgeko but different markup: chapter entries are
// li[data-chapterno] items whose link title carries the chapter slug.
type mgekoJumbo struct {
	site
}

func newMgekoJumbo(client *http.Client, log *ui.Logger) *mgekoJumbo {
	return &mgekoJumbo{site{
		name:    "mgekojumbo",
		baseURL: "https://www.mgeko.cc",
		client:  client,
		log:     log,
	}}
}

func (m *mgekoJumbo) SearchManga(ctx context.Context, query string) []MangaSummary {
	target := m.baseURL + "/?search=" + url.QueryEscape(query)
	doc, err := m.fetchDOM(ctx, target)
	if err != nil {
		m.log.Errorf("mgekojumbo: search %q: %v\n", query, err)
		return nil
	}

	var out []MangaSummary
	doc.Find(".manga-item, .item, .entry").Each(func(_ int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find("a").First().Text())
		if title == "" {
			title = strings.TrimSpace(el.Find(".title").First().Text())
		}
		href, _ := el.Find("a").First().Attr("href")
		if title == "" || href == "" {
			return
		}

		out = append(out, MangaSummary{
			Title: title,
			URL:   resolveURL(m.baseURL, href),
			Cover: resolveURL(m.baseURL, imageSrc(el.Find("img").First())),
			Site:  m.name,
		})
	})

	return out
}

func (m *mgekoJumbo) GetMangaDetails(ctx context.Context, mangaURL string) (MangaSummary, error) {
	doc, err := m.fetchDOM(ctx, mangaURL)
	if err != nil {
		return MangaSummary{}, err
	}

	title := firstNonEmpty(doc,
		selText("h1"),
		selText(".manga-title"),
		selText(".title"),
	)
	if title == "" {
		return MangaSummary{}, &ScrapeError{Site: m.name, URL: mangaURL, Field: "title"}
	}

	author := firstNonEmpty(doc,
		selText(".author"),
		selText(".manga-author"),
		labelSibling("Author"),
	)

	summary := firstNonEmpty(doc,
		selText(".summary"),
		selText(".description"),
		selText(".synopsis"),
	)

	cover := firstNonEmpty(doc,
		selAttr(".manga-cover img", "src"),
		selAttr(".cover img", "src"),
	)

	var genres []string
	seen := map[string]bool{}
	doc.Find(".genre, .tag, .category").Each(func(_ int, el *goquery.Selection) {
		g := strings.TrimSpace(el.Text())
		if g != "" && !seen[g] {
			seen[g] = true
			genres = append(genres, g)
		}
	})

	status := normalizeStatus(firstNonEmpty(doc,
		selText(".status"),
		labelSibling("Status"),
	))

	return MangaSummary{
		Title:   title,
		URL:     mangaURL,
		Author:  author,
		Genres:  genres,
		Summary: summary,
		Cover:   resolveURL(m.baseURL, cover),
		Status:  status,
		Site:    m.name,
	}, nil
}

func (m *mgekoJumbo) GetChapters(ctx context.Context, mangaURL string) ([]ChapterSummary, error) {
	chaptersURL := mangaURL
	if !strings.Contains(mangaURL, "/all-chapters/") {
		chaptersURL = strings.TrimRight(mangaURL, "/") + "/all-chapters/"
	}

	doc, err := m.fetchDOM(ctx, chaptersURL)
	if err != nil {
		return nil, err
	}

	var out []ChapterSummary
	doc.Find("li[data-chapterno] a").Each(func(_ int, el *goquery.Selection) {
		href, _ := el.Attr("href")
		label, _ := el.Attr("title")
		if href == "" || label == "" {
			return
		}

		number := ""
		if mch := reJumboChapterSlug.FindStringSubmatch(label); mch != nil {
			number = mch[1]
		} else {
			number = chapterNumber(label, len(out))
		}

		out = append(out, ChapterSummary{
			Title:  "Chapter " + number,
			Number: number,
			URL:    resolveURL(m.baseURL, href),
		})
	})

	sortChapters(out)
	return out, nil
}

func (m *mgekoJumbo) GetPages(ctx context.Context, chapterURL string) []Page {
	doc, err := m.fetchPageDOM(ctx, chapterURL)
	if err != nil {
		m.log.Errorf("mgekojumbo: pages %s: %v\n", chapterURL, err)
		return nil
	}

	col := newPageCollector(chapterURL)
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if tooSmall(img) {
			return
		}
		col.add(imageSrc(img))
	})

	if len(col.pages) == 0 {
		m.log.Debugf("mgekojumbo: no images on %s (%d img tags)\n", chapterURL, doc.Find("img").Length())
	}

	return col.pages
}
