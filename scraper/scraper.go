// Package scraper drives the detail-page extraction pipeline: URL
// validation, resilient fetching, parsing, courtesy delays, and
// first-seen-wins title de-duplication.
package scraper

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/riandhika/goodreads-scraper/config"
	"github.com/riandhika/goodreads-scraper/models"
	"github.com/riandhika/goodreads-scraper/parser"
)

// IsValidURL reports whether raw is an absolute, dereferenceable URL with
// both a scheme and a host.
func IsValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

// ReadURLList loads a line-delimited URL file, the artifact written by the
// discovery pipeline. Blank lines are skipped.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list %s: %w", path, err)
	}
	return urls, nil
}

// Batch runs the extraction pipeline over a URL list, strictly one request
// at a time.
type Batch struct {
	cfg     *config.Config
	fetcher *Fetcher
	parser  *parser.Parser
	rng     *rand.Rand
	Metrics *Metrics
}

// NewBatch builds a Batch. rng feeds both the courtesy-delay jitter and the
// parser's simulated commerce fields; tests pass a seeded source.
func NewBatch(cfg *config.Config, rng *rand.Rand) *Batch {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	metrics := NewMetrics()
	return &Batch{
		cfg:     cfg,
		fetcher: NewFetcher(cfg, metrics),
		parser:  parser.New(rng, cfg.MaxGenres),
		rng:     rng,
		Metrics: metrics,
	}
}

// Run processes urls in input order: invalid URLs are skipped with a
// warning, fetch and parse failures drop the item and never abort the
// batch, and a jittered courtesy delay follows every request. The returned
// slice is de-duplicated by title, first occurrence winning.
func (b *Batch) Run(ctx context.Context, urls []string) ([]*models.Book, *models.BatchResult) {
	result := &models.BatchResult{StartTime: time.Now()}
	var books []*models.Book

	for _, u := range urls {
		if ctx.Err() != nil {
			slog.Info("batch cancelled, returning partial results",
				slog.Int("scraped", len(books)),
			)
			break
		}
		if !IsValidURL(u) {
			result.InvalidURLs++
			slog.Warn("invalid URL skipped", slog.String("url", u))
			continue
		}

		result.RequestCount++
		b.Metrics.IncRequest("started")
		body, err := b.fetcher.Fetch(ctx, u)
		switch {
		case err != nil:
			result.FetchFailures++
		default:
			book, perr := b.parser.ParseBook(body, u)
			if perr != nil {
				result.ParseFailures++
				b.Metrics.IncError("parse")
				slog.Error("error occurred while parsing page",
					slog.String("url", u),
					slog.Any("error", perr),
				)
			} else {
				books = append(books, book)
				b.Metrics.IncBooks()
				slog.Info("scraped data for book", slog.String("title", book.Title))
			}
		}

		b.courtesySleep(ctx)
	}

	unique := b.dedupe(books, result)
	result.EndTime = time.Now()
	return unique, result
}

// courtesySleep blocks for a duration drawn uniformly from the configured
// [DelayMin, DelayMax] range. Cancellation cuts the sleep short.
func (b *Batch) courtesySleep(ctx context.Context) {
	delay := b.cfg.DelayMin
	if span := b.cfg.DelayMax - b.cfg.DelayMin; span > 0 {
		delay += time.Duration(b.rng.Int63n(int64(span)))
	}
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// dedupe drops records whose title was already seen, preserving the
// relative order of first occurrences.
func (b *Batch) dedupe(books []*models.Book, result *models.BatchResult) []*models.Book {
	seen, err := lru.New[string, struct{}](b.cfg.DedupeMaxSize)
	if err != nil {
		// Config validation keeps the size positive; fall back to no dedupe.
		slog.Error("dedupe cache unavailable", slog.Any("error", err))
		return books
	}

	unique := make([]*models.Book, 0, len(books))
	for _, book := range books {
		if _, ok := seen.Get(book.Title); ok {
			result.DuplicateTitles++
			b.Metrics.IncDuplicates()
			slog.Debug("duplicate title dropped", slog.String("title", book.Title))
			continue
		}
		seen.Add(book.Title, struct{}{})
		unique = append(unique, book)
	}
	return unique
}
