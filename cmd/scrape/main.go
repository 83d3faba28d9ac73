package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riandhika/goodreads-scraper/config"
	"github.com/riandhika/goodreads-scraper/models"
	"github.com/riandhika/goodreads-scraper/pipeline"
	"github.com/riandhika/goodreads-scraper/scraper"
)

func main() {
	defaults := config.DefaultConfig()
	inputDefault := defaults.InputFile
	if value, ok := config.EnvString("SCRAPER_URLS"); ok {
		inputDefault = value
	}
	outputDefault := defaults.OutputBase
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	formatDefault := defaults.OutputFormat
	if value, ok := config.EnvString("SCRAPER_FORMAT"); ok {
		formatDefault = value
	}
	metricsDefault := defaults.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	attemptsDefault := defaults.MaxAttempts
	if value, ok, err := config.EnvInt("SCRAPER_MAX_ATTEMPTS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_MAX_ATTEMPTS: %v\n", err)
		os.Exit(1)
	} else if ok {
		attemptsDefault = value
	}

	inputFile := flag.String("urls", inputDefault, "Line-delimited file of detail-page URLs")
	outputBase := flag.String("output", outputDefault, "Output base path (extension added per format)")
	outputFormat := flag.String("format", formatDefault, "Output format: json, csv, or dual")
	maxAttempts := flag.Int("max-attempts", attemptsDefault, "Total fetch attempts per URL")
	retryWaitSec := flag.Int("retry-wait", 2, "Fixed wait between fetch attempts (seconds)")
	delayMinMs := flag.Int("delay-min", 1000, "Courtesy delay lower bound between pages (milliseconds)")
	delayMaxMs := flag.Int("delay-max", 3000, "Courtesy delay upper bound between pages (milliseconds)")
	timeoutSec := flag.Int("timeout", 10, "Per-request timeout (seconds)")
	maxGenres := flag.Int("max-genres", 0, "Cap on collected genres per book (0 = unbounded)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.InputFile = *inputFile
	cfg.OutputBase = *outputBase
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MaxAttempts = *maxAttempts
	cfg.RetryWait = time.Duration(*retryWaitSec) * time.Second
	cfg.DelayMin = time.Duration(*delayMinMs) * time.Millisecond
	cfg.DelayMax = time.Duration(*delayMaxMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxGenres = *maxGenres
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.ValidateScrape(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	urls, err := scraper.ReadURLList(cfg.InputFile)
	if err != nil {
		slog.Error("loading URL list", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("starting scrape",
		slog.Int("urls", len(urls)),
		slog.String("format", cfg.OutputFormat),
		slog.String("output", cfg.OutputBase),
	)

	batch := scraper.NewBatch(cfg, nil)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(batch.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current item")
	}()

	books, result := batch.Run(ctx, urls)

	if err := pipeline.Save(books, cfg.OutputFormat, cfg.OutputBase); err != nil {
		slog.Error("saving output failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(books, result, cfg)
	slog.Info("scraping and saving completed")
}

func printSummary(books []*models.Book, result *models.BatchResult, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Books saved:     %d\n", len(books))
	fmt.Printf("  Requests:        %d\n", result.RequestCount)
	fmt.Printf("  Fetch failures:  %d\n", result.FetchFailures)
	fmt.Printf("  Parse failures:  %d\n", result.ParseFailures)
	fmt.Printf("  Invalid URLs:    %d\n", result.InvalidURLs)
	fmt.Printf("  Duplicates:      %d\n", result.DuplicateTitles)
	fmt.Printf("  Duration:        %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output:          %s (%s)\n", cfg.OutputBase, cfg.OutputFormat)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
