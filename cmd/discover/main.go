package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riandhika/goodreads-scraper/config"
	"github.com/riandhika/goodreads-scraper/discover"
)

func main() {
	listURL := flag.String("url", "", "Listing/shelf/search page URL to crawl (required)")
	maxURLs := flag.Int("max", 20, "Maximum number of book URLs to collect")
	delaySec := flag.Int("delay", 2, "Delay between listing page requests (seconds)")
	output := flag.String("output", "urls.txt", "Output file for the collected URL list")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.ListURL = *listURL
	cfg.MaxURLs = *maxURLs
	cfg.PageDelay = time.Duration(*delaySec) * time.Second
	cfg.URLsFile = *output
	cfg.Verbose = *verbose

	if err := cfg.ValidateDiscover(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting discovery session",
		slog.String("url", cfg.ListURL),
		slog.Int("max", cfg.MaxURLs),
		slog.Duration("delay", cfg.PageDelay),
		slog.String("output", cfg.URLsFile),
	)

	crawler, err := discover.NewCrawler(cfg)
	if err != nil {
		slog.Error("initialising crawler", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls := crawler.Run(ctx)
	if len(urls) == 0 {
		slog.Warn("no URLs collected, output file was not created")
		return
	}

	if err := discover.WriteURLList(urls, cfg.URLsFile); err != nil {
		slog.Error("failed to write output file",
			slog.String("path", cfg.URLsFile),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
	slog.Info("book URLs saved",
		slog.String("path", cfg.URLsFile),
		slog.Int("count", len(urls)),
	)
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
