// Package discover collects detail-page URLs from paginated listing pages
// and writes them out as a line-delimited artifact for the extraction
// pipeline.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/riandhika/goodreads-scraper/config"
)

// Crawler walks a listing page by bumping its `page` query parameter until
// the target count is reached or the listing runs out. Fetches are
// best-effort, one attempt per page: a failed page ends the crawl with
// whatever was collected so far.
type Crawler struct {
	cfg       *config.Config
	collector *colly.Collector
	origin    string
}

// NewCrawler builds a crawler pinned to the listing URL's host.
func NewCrawler(cfg *config.Config) (*Crawler, error) {
	parsed, err := url.Parse(cfg.ListURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("listing url must include scheme and host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt

	return &Crawler{
		cfg:       cfg,
		collector: collector,
		origin:    parsed.Scheme + "://" + parsed.Host,
	}, nil
}

// Run paginates through the listing and returns the collected detail URLs,
// de-duplicated on insert, in first-seen order.
func (c *Crawler) Run(ctx context.Context) []string {
	seen := make(map[string]struct{})
	var urls []string
	pageLinks := 0

	c.collector.OnHTML("a.bookTitle[href]", func(e *colly.HTMLElement) {
		pageLinks++
		if len(urls) >= c.cfg.MaxURLs {
			return
		}
		full := c.origin + e.Attr("href")
		if _, ok := seen[full]; ok {
			return
		}
		seen[full] = struct{}{}
		urls = append(urls, full)
	})

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			slog.Info("discovery cancelled", slog.Int("collected", len(urls)))
			break
		}

		pageURL, err := paginatedURL(c.cfg.ListURL, page)
		if err != nil {
			slog.Error("building page URL failed", slog.Int("page", page), slog.Any("error", err))
			break
		}

		slog.Info("fetching listing page",
			slog.Int("page", page),
			slog.String("url", pageURL),
			slog.Int("collected", len(urls)),
		)

		pageLinks = 0
		before := len(urls)
		if err := c.collector.Visit(pageURL); err != nil {
			slog.Error("listing fetch failed, stopping",
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}
		if pageLinks == 0 {
			slog.Info("no book links found, reached the end of the listing",
				slog.Int("page", page),
			)
			break
		}

		slog.Info("collected page links",
			slog.Int("page", page),
			slog.Int("new", len(urls)-before),
			slog.Int("total", len(urls)),
			slog.Int("target", c.cfg.MaxURLs),
		)
		if len(urls) >= c.cfg.MaxURLs {
			break
		}

		c.pageSleep(ctx)
	}

	slog.Info("discovery finished", slog.Int("collected", len(urls)))
	return urls
}

func (c *Crawler) pageSleep(ctx context.Context) {
	if c.cfg.PageDelay <= 0 {
		return
	}
	timer := time.NewTimer(c.cfg.PageDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// paginatedURL sets or overwrites the `page` query parameter on base.
func paginatedURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// WriteURLList persists urls as a line-delimited file, one URL per line,
// via a temp file and rename so a failed write cannot truncate a previous
// artifact.
func WriteURLList(urls []string, path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	var builder strings.Builder
	for _, u := range urls {
		builder.WriteString(u)
		builder.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	if _, err := tmp.WriteString(builder.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write url list %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close url list %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace url list %s: %w", path, err)
	}
	return nil
}
