package sources

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/mangacap/internal/ui"
	"github.com/brogergvhs/mangacap/internal/util"
)

// pageFetchDelay is the fixed pause before the single retry on a chapter-page
// fetch. Search and detail fetches are not retried; their callers already
// treat failure as empty.
const pageFetchDelay = time.Second

// site carries what every adapter needs: a shared HTTP client with a bounded
// timeout, the site identifier used for provenance tagging, the base URL for
// resolving relative links, and the logger.
type site struct {
	name    string
	baseURL string
	client  *http.Client
	log     *ui.Logger
}

func (s *site) Site() string { return s.name }

func (s *site) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	resp, err := s.fetch(ctx, target, 1)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return goquery.NewDocumentFromReader(resp.Body)
}

// fetchPageDOM is fetchDOM with the retry-once policy reserved for chapter
// reading pages, where a transient miss would otherwise persist as an empty
// chapter.
func (s *site) fetchPageDOM(ctx context.Context, target string) (*goquery.Document, error) {
	resp, err := s.fetch(ctx, target, 2)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *site) fetchJSON(ctx context.Context, target string, attempts int) ([]byte, error) {
	resp, err := s.fetch(ctx, target, attempts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return io.ReadAll(resp.Body)
}

func (s *site) fetch(ctx context.Context, target string, attempts int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	s.log.Debugf("fetch %s\n", target)

	return util.DoWithRetry(s.client, req, attempts, pageFetchDelay)
}
