package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/riandhika/goodreads-scraper/config"
)

// Fetcher issues detail-page requests with a bounded number of tries and a
// fixed wait between them. There is deliberately no exponential backoff:
// the wait stays constant across attempts.
type Fetcher struct {
	client  *resty.Client
	metrics *Metrics
}

// NewFetcher builds a Fetcher from cfg. MaxAttempts is the total number of
// tries, so a value of 3 means one request plus two retries.
func NewFetcher(cfg *config.Config, metrics *Metrics) *Fetcher {
	client := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxAttempts - 1).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || !r.IsSuccess()
		})

	client.AddRetryHook(func(r *resty.Response, err error) {
		metrics.IncRetries()
		attrs := []any{
			slog.Int("attempt", r.Request.Attempt),
			slog.String("url", r.Request.URL),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		} else {
			attrs = append(attrs, slog.Int("status", r.StatusCode()))
		}
		slog.Warn("fetch attempt failed", attrs...)
	})

	return &Fetcher{client: client, metrics: metrics}
}

// Fetch retrieves the page body at url. It returns a classified error once
// every attempt is exhausted; the caller treats that as "no data for this
// item", never as a fatal condition.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(url)
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		classified := classifyError(err, 0)
		f.metrics.IncError(errorTypeLabel(classified))
		slog.Error("failed to fetch URL after all attempts",
			slog.String("url", url),
			slog.Any("error", classified),
		)
		return nil, classified
	}
	if !resp.IsSuccess() {
		classified := classifyError(fmt.Errorf("http status %d", resp.StatusCode()), resp.StatusCode())
		f.metrics.IncError(errorTypeLabel(classified))
		slog.Error("failed to fetch URL after all attempts",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode()),
		)
		return nil, classified
	}

	return resp.Body(), nil
}
