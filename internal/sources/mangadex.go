package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brogergvhs/mangacap/internal/ui"
)

// mangaDex talks to the MangaDex public API, the only source with a JSON
// contract instead of scraped HTML. Manga URLs look like
// https://mangadex.org/manga/<uuid>; the trailing segment is the API id.
type mangaDex struct {
	site
	apiURL string
}

func newMangaDex(client *http.Client, log *ui.Logger) *mangaDex {
	return &mangaDex{
		site: site{
			name:    "mangadex",
			baseURL: "https://mangadex.org",
			client:  client,
			log:     log,
		},
		apiURL: "https://api.mangadex.org",
	}
}

type mdManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
		Status      string            `json:"status"`
		Tags        []struct {
			Attributes struct {
				Name  map[string]string `json:"name"`
				Group string            `json:"group"`
			} `json:"attributes"`
		} `json:"tags"`
	} `json:"attributes"`
	Relationships []struct {
		Type       string `json:"type"`
		Attributes struct {
			Name     string `json:"name"`
			FileName string `json:"fileName"`
		} `json:"attributes"`
	} `json:"relationships"`
}

type mdListResponse struct {
	Data []mdManga `json:"data"`
}

type mdEntityResponse struct {
	Data mdManga `json:"data"`
}

type mdFeedResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Title   string `json:"title"`
			Chapter string `json:"chapter"`
		} `json:"attributes"`
	} `json:"data"`
}

type mdAtHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash string   `json:"hash"`
		Data []string `json:"data"`
	} `json:"chapter"`
}

func (m *mangaDex) SearchManga(ctx context.Context, query string) []MangaSummary {
	q := url.Values{}
	q.Set("title", query)
	q.Set("limit", "20")
	q.Add("includes[]", "cover_art")
	q.Add("includes[]", "author")
	q.Add("availableTranslatedLanguage[]", "en")

	body, err := m.fetchJSON(ctx, m.apiURL+"/manga?"+q.Encode(), 1)
	if err != nil {
		m.log.Errorf("mangadex: search %q: %v\n", query, err)
		return nil
	}

	var resp mdListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		m.log.Errorf("mangadex: search decode: %v\n", err)
		return nil
	}

	var out []MangaSummary
	for _, item := range resp.Data {
		s := m.toSummary(item)
		if s.Title == "" {
			continue
		}
		out = append(out, s)
	}

	return out
}

func (m *mangaDex) GetMangaDetails(ctx context.Context, mangaURL string) (MangaSummary, error) {
	id := lastPathSegment(mangaURL)

	q := url.Values{}
	q.Add("includes[]", "cover_art")
	q.Add("includes[]", "author")

	body, err := m.fetchJSON(ctx, m.apiURL+"/manga/"+id+"?"+q.Encode(), 1)
	if err != nil {
		return MangaSummary{}, err
	}

	var resp mdEntityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return MangaSummary{}, fmt.Errorf("mangadex: decode manga %s: %w", id, err)
	}

	s := m.toSummary(resp.Data)
	if s.Title == "" {
		return MangaSummary{}, &ScrapeError{Site: m.name, URL: mangaURL, Field: "title"}
	}
	s.URL = mangaURL

	return s, nil
}

func (m *mangaDex) GetChapters(ctx context.Context, mangaURL string) ([]ChapterSummary, error) {
	id := lastPathSegment(mangaURL)

	q := url.Values{}
	q.Set("limit", "500")
	q.Add("translatedLanguage[]", "en")
	q.Set("order[chapter]", "asc")

	body, err := m.fetchJSON(ctx, m.apiURL+"/manga/"+id+"/feed?"+q.Encode(), 1)
	if err != nil {
		return nil, err
	}

	var resp mdFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mangadex: decode feed %s: %w", id, err)
	}

	var out []ChapterSummary
	for _, item := range resp.Data {
		number := item.Attributes.Chapter
		if number == "" {
			number = "0"
		}
		title := item.Attributes.Title
		if title == "" {
			title = "Chapter " + number
		}
		out = append(out, ChapterSummary{
			Title:  title,
			Number: number,
			URL:    m.baseURL + "/chapter/" + item.ID,
		})
	}

	sortChapters(out)
	return out, nil
}

func (m *mangaDex) GetPages(ctx context.Context, chapterURL string) []Page {
	id := lastPathSegment(chapterURL)

	body, err := m.fetchJSON(ctx, m.apiURL+"/at-home/server/"+id, 2)
	if err != nil {
		m.log.Errorf("mangadex: pages %s: %v\n", chapterURL, err)
		return nil
	}

	var resp mdAtHomeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		m.log.Errorf("mangadex: decode at-home %s: %v\n", id, err)
		return nil
	}

	pages := make([]Page, 0, len(resp.Chapter.Data))
	for i, filename := range resp.Chapter.Data {
		pages = append(pages, Page{
			Number: i + 1,
			Image:  fmt.Sprintf("%s/data/%s/%s", resp.BaseURL, resp.Chapter.Hash, filename),
		})
	}

	return pages
}

func (m *mangaDex) toSummary(item mdManga) MangaSummary {
	title := pickLang(item.Attributes.Title, "en")
	if title == "" {
		for _, v := range item.Attributes.Title {
			title = v
			break
		}
	}

	author := ""
	cover := ""
	for _, rel := range item.Relationships {
		switch rel.Type {
		case "author":
			if author == "" {
				author = rel.Attributes.Name
			}
		case "cover_art":
			if cover == "" && rel.Attributes.FileName != "" {
				cover = fmt.Sprintf("https://uploads.mangadex.org/covers/%s/%s", item.ID, rel.Attributes.FileName)
			}
		}
	}

	var genres []string
	for _, tag := range item.Attributes.Tags {
		if tag.Attributes.Group != "genre" {
			continue
		}
		if name := pickLang(tag.Attributes.Name, "en"); name != "" {
			genres = append(genres, name)
		}
	}

	return MangaSummary{
		Title:   title,
		URL:     m.baseURL + "/manga/" + item.ID,
		Author:  author,
		Genres:  genres,
		Summary: pickLang(item.Attributes.Description, "en"),
		Cover:   cover,
		Status:  normalizeStatus(item.Attributes.Status),
		Site:    m.name,
	}
}

func pickLang(m map[string]string, lang string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[lang])
}

func lastPathSegment(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
