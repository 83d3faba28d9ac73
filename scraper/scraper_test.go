package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/riandhika/goodreads-scraper/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.RetryWait = time.Millisecond
	cfg.DelayMin = 0
	cfg.DelayMax = 0
	return cfg
}

func detailPage(title, author string) string {
	return fmt.Sprintf(
		`<html><body>
			<h1 data-testid="bookTitle">%s</h1>
			<a class="ContributorLink">%s</a>
			<div class="RatingStatistics__rating">4.10</div>
		</body></html>`,
		title, author,
	)
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func newTestBatch(t *testing.T, cfg *config.Config) (*Batch, *httpmock.MockTransport) {
	t.Helper()
	batch := NewBatch(cfg, rand.New(rand.NewSource(1)))
	transport := httpmock.NewMockTransport()
	batch.fetcher.client.GetClient().Transport = transport
	return batch, transport
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "absolute http", input: "http://example.test/book/1", valid: true},
		{name: "absolute https", input: "https://www.goodreads.com/book/show/36236124", valid: true},
		{name: "missing scheme", input: "www.goodreads.com/book/show/1", valid: false},
		{name: "missing host", input: "http://", valid: false},
		{name: "relative path", input: "/book/show/1", valid: false},
		{name: "empty", input: "", valid: false},
		{name: "garbage", input: "::broken::", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidURL(tt.input); got != tt.valid {
				t.Errorf("IsValidURL(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "other"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestFetcherRetriesThenSucceeds(t *testing.T) {
	cfg := testConfig()
	batch, transport := newTestBatch(t, cfg)

	pageURL := "http://example.test/book/1"
	calls := 0
	transport.RegisterResponder("GET", pageURL, func(*http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return httpmock.NewStringResponse(http.StatusInternalServerError, ""), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, detailPage("Retry Book", "Author")), nil
	})

	body, err := batch.fetcher.Fetch(context.Background(), pageURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("expected a response body")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestFetcherExhaustsAttempts(t *testing.T) {
	cfg := testConfig()
	batch, transport := newTestBatch(t, cfg)

	pageURL := "http://example.test/book/broken"
	transport.RegisterResponder("GET", pageURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	_, err := batch.fetcher.Fetch(context.Background(), pageURL)
	if err == nil {
		t.Fatalf("expected fetch failure after exhausted attempts")
	}
	if got := transport.GetTotalCallCount(); got != cfg.MaxAttempts {
		t.Fatalf("attempts = %d, want %d", got, cfg.MaxAttempts)
	}
}

func TestBatchRunSkipsFailuresAndInvalidURLs(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	batch, transport := newTestBatch(t, cfg)

	goodURL := "http://example.test/book/good"
	brokenURL := "http://example.test/book/unreachable"
	transport.RegisterResponder("GET", goodURL, htmlResponder(detailPage("Good Book", "Good Author")))
	transport.RegisterResponder("GET", brokenURL,
		httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))

	urls := []string{"not-a-url", brokenURL, goodURL}
	books, result := batch.Run(context.Background(), urls)

	if len(books) != 1 {
		t.Fatalf("books = %d, want 1", len(books))
	}
	if books[0].Title != "Good Book" {
		t.Fatalf("title = %q, want %q", books[0].Title, "Good Book")
	}
	if result.InvalidURLs != 1 {
		t.Errorf("invalid URLs = %d, want 1", result.InvalidURLs)
	}
	if result.FetchFailures != 1 {
		t.Errorf("fetch failures = %d, want 1", result.FetchFailures)
	}
	if result.RequestCount != 2 {
		t.Errorf("requests = %d, want 2", result.RequestCount)
	}
}

func TestBatchRunDropsUnparseablePages(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	batch, transport := newTestBatch(t, cfg)

	noTitleURL := "http://example.test/book/empty"
	goodURL := "http://example.test/book/good"
	transport.RegisterResponder("GET", noTitleURL, htmlResponder("<html><body><p>nothing here</p></body></html>"))
	transport.RegisterResponder("GET", goodURL, htmlResponder(detailPage("Good Book", "Good Author")))

	books, result := batch.Run(context.Background(), []string{noTitleURL, goodURL})

	if len(books) != 1 || books[0].Title != "Good Book" {
		t.Fatalf("books = %v, want just Good Book", books)
	}
	if result.ParseFailures != 1 {
		t.Errorf("parse failures = %d, want 1", result.ParseFailures)
	}
}

func TestBatchRunDeduplicatesByTitle(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	batch, transport := newTestBatch(t, cfg)

	urls := []string{
		"http://example.test/book/a",
		"http://example.test/book/b",
		"http://example.test/book/a-reissue",
		"http://example.test/book/c",
	}
	transport.RegisterResponder("GET", urls[0], htmlResponder(detailPage("Alpha", "First Author")))
	transport.RegisterResponder("GET", urls[1], htmlResponder(detailPage("Beta", "Author")))
	transport.RegisterResponder("GET", urls[2], htmlResponder(detailPage("Alpha", "Second Author")))
	transport.RegisterResponder("GET", urls[3], htmlResponder(detailPage("Gamma", "Author")))

	books, result := batch.Run(context.Background(), urls)

	if len(books) != 3 {
		t.Fatalf("books = %d, want 3", len(books))
	}
	order := []string{"Alpha", "Beta", "Gamma"}
	for i, want := range order {
		if books[i].Title != want {
			t.Errorf("books[%d].Title = %q, want %q", i, books[i].Title, want)
		}
	}
	// First occurrence wins: Alpha keeps the author from the earliest URL.
	if books[0].AuthorName != "First Author" {
		t.Errorf("kept author = %q, want %q", books[0].AuthorName, "First Author")
	}
	if result.DuplicateTitles != 1 {
		t.Errorf("duplicates = %d, want 1", result.DuplicateTitles)
	}
}

func TestReadURLList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	content := "http://example.test/book/1\n\nhttp://example.test/book/2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	urls, err := ReadURLList(path)
	if err != nil {
		t.Fatalf("read url list: %v", err)
	}
	if len(urls) != 2 || urls[0] != "http://example.test/book/1" || urls[1] != "http://example.test/book/2" {
		t.Fatalf("urls = %v", urls)
	}

	if _, err := ReadURLList(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatalf("expected error for a missing list file")
	}
}
