package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"webcorpus/internal/config"
	"webcorpus/internal/fetcher"
	"webcorpus/internal/logger"
	"webcorpus/internal/metrics"
)

func newFetchCmd(cfg *config.Config) *cobra.Command {
	var (
		urlsPath    string
		outPath     string
		concurrency int
		ratePerSec  float64
		timeoutSecs int
		connectSecs int
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Bounded-concurrency URL fetch, writing 200 responses as response-type archive records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if urlsPath == "" || outPath == "" {
				return fmt.Errorf("%w: --urls and --out are required", errUsage)
			}
			return runFetch(cmd.Context(), cfg, urlsPath, outPath, fetcher.Config{
				Concurrency: concurrency,
				RatePerSec:  ratePerSec,
				Timeout:     time.Duration(timeoutSecs) * time.Second,
				ConnectTTL:  time.Duration(connectSecs) * time.Second,
				MaxAttempts: maxAttempts,
			})
		},
	}

	cmd.Flags().StringVar(&urlsPath, "urls", "", "path to a newline-delimited list of URLs (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output archive path (required)")
	cmd.Flags().IntVar(&concurrency, "concurrency", cfg.FetchConcurrency, "TOTAL_CONCURRENT_REQUESTS, bounded in-flight request count")
	cmd.Flags().Float64Var(&ratePerSec, "rate", cfg.FetchRatePerSec, "requests per second (0 = unlimited)")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", cfg.FetchTimeoutSecs, "per-request total timeout, seconds")
	cmd.Flags().IntVar(&connectSecs, "connect-timeout", cfg.FetchConnectSecs, "per-request connect timeout, seconds")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", cfg.FetchMaxAttempts, "retry attempts on network/timeout errors")

	return cmd
}

func runFetch(ctx context.Context, cfg *config.Config, urlsPath, outPath string, fcfg fetcher.Config) error {
	urls, err := readURLs(urlsPath)
	if err != nil {
		return err
	}

	log := logger.New("FETCH", cfg.LogLevel)
	m := metrics.New()

	f, err := fetcher.New(fcfg, log, m)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	log.Infof("start", "fetching %d urls with concurrency=%d", len(urls), fcfg.Concurrency)
	summary, err := f.Run(ctx, urls, outPath)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	log.Infof("done", "attempts=%d success=%d retries=%d skipped=%d errors=%d",
		summary.Attempts, summary.Success, summary.Retries, summary.Skipped, summary.Errors)
	if summary.Errors > 0 {
		return fmt.Errorf("fetch: %d of %d urls failed", summary.Errors, len(urls))
	}
	return nil
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path supplied by the CLI's own --urls flag
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errUsage, path, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errUsage, path, err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no urls found in %s", errUsage, path)
	}
	return urls, nil
}
