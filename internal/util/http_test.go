package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoWithRetryRecoversFromServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(srv.Client(), req, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	resp.Body.Close()
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestDoWithRetryStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := DoWithRetry(srv.Client(), req, 3, time.Millisecond); err == nil {
		t.Fatal("expected an error for a 404")
	}
	if calls.Load() != 1 {
		t.Errorf("404 was retried: %d calls", calls.Load())
	}
}

func TestDoWithRetryExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := DoWithRetry(srv.Client(), req, 2, time.Millisecond); err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestClientSetsUserAgentAndCookie(t *testing.T) {
	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	client, err := NewHTTPClient(HTTPClientOptions{
		Timeout:   5 * time.Second,
		UserAgent: "test-agent/1.0",
		Cookie:    "session=abc",
		Transport: http.DefaultTransport,
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotCookie != "session=abc" {
		t.Errorf("Cookie = %q", gotCookie)
	}
}

func TestJoinCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte("\ncf_clearance=xyz\nignored=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := joinCookies("a=1", path); got != "a=1; cf_clearance=xyz" {
		t.Errorf("joinCookies = %q", got)
	}
	if got := joinCookies("", path); got != "cf_clearance=xyz" {
		t.Errorf("joinCookies file only = %q", got)
	}
	if got := joinCookies("a=1", ""); got != "a=1" {
		t.Errorf("joinCookies inline only = %q", got)
	}
}

func TestPickUserAgent(t *testing.T) {
	if got := PickUserAgent("custom"); got != "custom" {
		t.Errorf("override ignored: %q", got)
	}
	if got := PickUserAgent(""); got == "" {
		t.Error("default user agent empty")
	}
}
