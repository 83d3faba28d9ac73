package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the extraction pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	BooksScraped    prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	DuplicatesTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_requests_total",
			Help: "Total detail-page HTTP requests issued.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "goodreads_request_duration_seconds",
			Help:    "HTTP request latency for detail pages.",
			Buckets: prometheus.DefBuckets,
		},
	)
	booksScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodreads_books_scraped_total",
			Help: "Total book records successfully parsed.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodreads_retries_total",
			Help: "Total retry attempts issued by the fetcher.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_errors_total",
			Help: "Total failures by type.",
		},
		[]string{"error_type"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodreads_duplicate_titles_total",
			Help: "Total records dropped by title de-duplication.",
		},
	)

	registry.MustRegister(requests, requestDuration, booksScraped, retries, errorsTotal, duplicates)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		BooksScraped:    booksScraped,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		DuplicatesTotal: duplicates,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncBooks increments the scraped books counter.
func (m *Metrics) IncBooks() {
	if m == nil {
		return
	}
	m.BooksScraped.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncDuplicates increments the duplicate titles counter.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}
