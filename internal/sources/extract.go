package sources

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// logoMarker is the placeholder asset some sites serve in place of a real
// page image. Anything referencing it is UI chrome, never content.
const logoMarker = "logo_200x200.png"

var (
	reChapterWord = regexp.MustCompile(`(?i)chapter[\s_\-]*0*(\d+(?:[.\-]\d+)?)`)
	reAnyNumber   = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	reLeadingNum  = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)
	reImageExt    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)(?:[?#].*)?$`)
)

// textStrategy extracts one candidate value from a document. Empty string
// means "this strategy found nothing", not an error.
type textStrategy func(doc *goquery.Document) string

// firstNonEmpty runs strategies in order and takes the first non-empty,
// trimmed result. This is how every optional field is extracted: sites change
// markup without notice, so no single selector is trusted.
func firstNonEmpty(doc *goquery.Document, strategies ...textStrategy) string {
	for _, s := range strategies {
		if v := strings.TrimSpace(s(doc)); v != "" {
			return v
		}
	}
	return ""
}

func selText(selector string) textStrategy {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

func selAttr(selector, attr string) textStrategy {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr(attr)
		return v
	}
}

// imageSrc reads the usual lazy-loading attribute cascade off an <img>.
func imageSrc(img *goquery.Selection) string {
	for _, k := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
		if v, ok := img.Attr(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL makes href absolute against base. Bad input comes back as-is;
// an adapter would rather emit a broken link than lose the item.
func resolveURL(base, href string) string {
	if href == "" {
		return base
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

// chapterNumber pulls a chapter number out of a label. Cascade: the word
// "chapter" followed by a number, then any number at all, then the positional
// index. Always returns something so the (manga, number, language) key can be
// built for every chapter.
func chapterNumber(label string, position int) string {
	if m := reChapterWord.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	if m := reAnyNumber.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return strconv.Itoa(position + 1)
}

// numberValue parses a chapter number for ordering. Non-numeric labels parse
// as 0 and keep their source-order position through the stable sort.
func numberValue(number string) float64 {
	m := reLeadingNum.FindString(strings.TrimSpace(number))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// sortChapters orders ascending by parsed number regardless of how the site
// lists them. Callers rely on this, not on the page's natural order.
func sortChapters(chapters []ChapterSummary) {
	sort.SliceStable(chapters, func(i, j int) bool {
		return numberValue(chapters[i].Number) < numberValue(chapters[j].Number)
	})
}

// isContentImage filters site chrome out of a page-image candidate list.
func isContentImage(src string) bool {
	lu := strings.ToLower(src)
	if strings.Contains(lu, logoMarker) {
		return false
	}
	for _, bad := range []string{"logo", "avatar", "banner", "icon", "profile"} {
		if strings.Contains(lu, bad) {
			return false
		}
	}
	return reImageExt.MatchString(lu)
}

// IsLogoImage reports whether an image reference points at the reserved
// placeholder asset. The cleanup routine uses the same marker the adapters
// filter on.
func IsLogoImage(src string) bool {
	return strings.Contains(strings.ToLower(src), logoMarker)
}

// tooSmall drops images whose declared dimensions mark them as UI elements.
func tooSmall(img *goquery.Selection) bool {
	w, wok := img.Attr("width")
	h, hok := img.Attr("height")
	if !wok || !hok {
		return false
	}
	wi, werr := strconv.Atoi(strings.TrimSpace(w))
	hi, herr := strconv.Atoi(strings.TrimSpace(h))
	if werr != nil || herr != nil {
		return false
	}
	return wi < 100 || hi < 100
}

// pageCollector accumulates page images, de-duplicating by URL and numbering
// in discovery order.
type pageCollector struct {
	base  string
	pages []Page
	seen  map[string]bool
}

func newPageCollector(base string) *pageCollector {
	return &pageCollector{base: base, seen: map[string]bool{}}
}

func (c *pageCollector) add(src string) {
	if src == "" || !isContentImage(src) {
		return
	}
	u := resolveURL(c.base, src)
	if c.seen[u] {
		return
	}
	c.seen[u] = true
	c.pages = append(c.pages, Page{Number: len(c.pages) + 1, Image: u})
}

// normalizeStatus maps whatever a site says about publication state onto the
// three values the rest of the system understands. Unknown stays empty.
func normalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "complet"):
		return "completed"
	case strings.Contains(s, "hiatus"), strings.Contains(s, "on hold"):
		return "hiatus"
	case strings.Contains(s, "ongoing"), strings.Contains(s, "releasing"), strings.Contains(s, "publishing"):
		return "ongoing"
	default:
		return ""
	}
}
