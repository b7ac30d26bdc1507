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

var reMgekoChapter = regexp.MustCompile(`\d+-eng-li`)

// mgeko scrapes mgeko.cc, a WordPress-theme site. Chapter links carry an
// "-eng-li" slug suffix and the chapter index lives under /all-chapters/.
type mgeko struct {
	site
}

func newMgeko(client *http.Client, log *ui.Logger) *mgeko {
	return &mgeko{site{
		name:    "mgeko",
		baseURL: "https://mgeko.cc",
		client:  client,
		log:     log,
	}}
}

func (m *mgeko) SearchManga(ctx context.Context, query string) []MangaSummary {
	target := m.baseURL + "/?s=" + url.QueryEscape(query)
	doc, err := m.fetchDOM(ctx, target)
	if err != nil {
		m.log.Errorf("mgeko: search %q: %v\n", query, err)
		return nil
	}

	var out []MangaSummary
	doc.Find(".bs .bsx, .listupd .bs .bsx").Each(func(_ int, el *goquery.Selection) {
		title, _ := el.Find("a").First().Attr("title")
		if title == "" {
			title = strings.TrimSpace(el.Find(".tt").First().Text())
		}
		href, _ := el.Find("a").First().Attr("href")
		if title == "" || href == "" {
			return
		}

		cover := imageSrc(el.Find("img").First())

		out = append(out, MangaSummary{
			Title: title,
			URL:   resolveURL(m.baseURL, href),
			Cover: resolveURL(m.baseURL, cover),
			Site:  m.name,
		})
	})

	return out
}

func (m *mgeko) GetMangaDetails(ctx context.Context, mangaURL string) (MangaSummary, error) {
	doc, err := m.fetchDOM(ctx, mangaURL)
	if err != nil {
		return MangaSummary{}, err
	}

	title := firstNonEmpty(doc,
		func(doc *goquery.Document) string {
			h1 := doc.Find("h1").First().Text()
			return strings.SplitN(h1, "\n", 2)[0]
		},
		func(doc *goquery.Document) string {
			t := doc.Find("title").Text()
			t = strings.TrimPrefix(t, "Read ")
			return strings.TrimSuffix(t, " Manga Online for Free")
		},
	)
	if title == "" {
		return MangaSummary{}, &ScrapeError{Site: m.name, URL: mangaURL, Field: "title"}
	}

	author := firstNonEmpty(doc,
		selText(".author span:last-child"),
		labelSibling("Author"),
	)

	// The summary has no stable selector on this theme. Take the first block
	// of prose long enough to be a synopsis.
	summary := firstNonEmpty(doc,
		selText(".summary .description"),
		func(doc *goquery.Document) string {
			var found string
			doc.Find("p, div.description").EachWithBreak(func(_ int, el *goquery.Selection) bool {
				if t := strings.TrimSpace(el.Text()); len(t) > 100 {
					found = t
					return false
				}
				return true
			})
			return found
		},
	)

	cover := firstNonEmpty(doc,
		selAttr(".cover img", "src"),
		selAttr("img", "src"),
	)

	var genres []string
	seen := map[string]bool{}
	doc.Find("a[href*=genre], a[href*=tag]").Each(func(_ int, el *goquery.Selection) {
		g := strings.TrimSpace(el.Text())
		if g != "" && !seen[g] {
			seen[g] = true
			genres = append(genres, g)
		}
	})

	status := normalizeStatus(firstNonEmpty(doc,
		labelSibling("Status"),
		selText(".status"),
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

func (m *mgeko) GetChapters(ctx context.Context, mangaURL string) ([]ChapterSummary, error) {
	chaptersURL := strings.TrimRight(mangaURL, "/") + "/all-chapters/"
	doc, err := m.fetchDOM(ctx, chaptersURL)
	if err != nil {
		return nil, err
	}

	var out []ChapterSummary
	doc.Find("a").Each(func(_ int, el *goquery.Selection) {
		href, _ := el.Attr("href")
		text := strings.TrimSpace(el.Text())
		if href == "" || text == "" || !reMgekoChapter.MatchString(text) {
			return
		}

		number := chapterNumber(text, len(out))
		out = append(out, ChapterSummary{
			Title:  "Chapter " + number,
			Number: number,
			URL:    resolveURL(m.baseURL, href),
		})
	})

	sortChapters(out)
	return out, nil
}

func (m *mgeko) GetPages(ctx context.Context, chapterURL string) []Page {
	doc, err := m.fetchPageDOM(ctx, chapterURL)
	if err != nil {
		m.log.Errorf("mgeko: pages %s: %v\n", chapterURL, err)
		return nil
	}

	// Reader containers first, the whole document as a last resort. The first
	// selector that yields content wins, so chrome images on the outer page
	// never mix into a successful container match.
	for _, selector := range []string{
		"#readerarea img",
		".rdminimal img",
		".reader-area img",
		".reading-content img",
		".chapter-content img",
		"img",
	} {
		col := newPageCollector(chapterURL)
		doc.Find(selector).Each(func(_ int, img *goquery.Selection) {
			col.add(imageSrc(img))
		})
		if len(col.pages) > 0 {
			return col.pages
		}
	}

	return nil
}

// labelSibling finds an element whose text is the given label and takes the
// text of its next sibling, a common "Author: / value" layout.
func labelSibling(label string) textStrategy {
	return func(doc *goquery.Document) string {
		var found string
		doc.Find("b, strong, span, h4, td").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			t := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(el.Text()), ":"))
			if !strings.EqualFold(t, label) {
				return true
			}
			if v := strings.TrimSpace(el.Next().Text()); v != "" {
				found = v
				return false
			}
			return true
		})
		return found
	}
}
