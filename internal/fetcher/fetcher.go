// Package fetcher implements the bounded-concurrency URL fetcher (C9): a
// semaphore-limited in-flight request set, per-request timeouts, retry
// with exponential backoff, and a response-type record sink.
//
// Concurrency shape and rate limiting are grounded on gonimbus's crawler
// (other_examples/...gonimbus__pkg-crawler-crawler.go.go): an optional
// golang.org/x/time/rate limiter gates entry into a bounded worker set,
// atomic counters track the run's summary. The HTTP/2-aware transport
// construction reuses the teacher's client-facing tuning idiom from
// internal/mitm/mitm.go, applied to an outbound client instead of an
// inbound MITM server.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"webcorpus/internal/logger"
	"webcorpus/internal/metrics"
	"webcorpus/internal/record"
)

// Config bundles the fetcher's tunables from the component contract.
type Config struct {
	Concurrency int           // TOTAL_CONCURRENT_REQUESTS, default 32
	RatePerSec  float64       // 0 disables rate limiting
	Timeout     time.Duration // per-request total timeout, default 10s
	ConnectTTL  time.Duration // connect timeout, default 5s
	MaxAttempts int           // default 3
}

// DefaultConfig returns the component contract's stated defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 32,
		RatePerSec:  0,
		Timeout:     10 * time.Second,
		ConnectTTL:  5 * time.Second,
		MaxAttempts: 3,
	}
}

// Summary aggregates one run's outcome.
type Summary struct {
	Attempts int64
	Success  int64
	Retries  int64
	Skipped  int64 // non-200 responses, counted but not archived
	Errors   int64
}

// Fetcher retrieves a batch of URLs with bounded concurrency and writes
// successful responses to a record sink.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New builds a Fetcher. An HTTP/2-capable transport is configured the way
// the teacher's MITM server negotiates h2, applied here to the client side
// via http2.ConfigureTransport.
func New(cfg Config, log *logger.Logger, m *metrics.Metrics) (*Fetcher, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTTL,
		}).DialContext,
		MaxIdleConnsPerHost: cfg.Concurrency,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("fetcher: configure http2 transport: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
		limiter: limiter,
		log:     log,
		metrics: m,
	}, nil
}

// Run fetches every URL in urls with at most cfg.Concurrency in flight at
// once, writing 200 responses to outPath as response-type records. Other
// statuses are counted but not archived. Invalid URLs fail immediately
// without retry; network/timeout errors retry with exponential backoff
// 1s*2^attempt up to cfg.MaxAttempts.
func (f *Fetcher) Run(ctx context.Context, urls []string, outPath string) (Summary, error) {
	sink, err := record.NewSink(outPath)
	if err != nil {
		return Summary{}, fmt.Errorf("fetcher: create %s: %w", outPath, err)
	}
	defer sink.Close()

	var sinkMu sync.Mutex
	sem := make(chan struct{}, f.cfg.Concurrency)
	var wg sync.WaitGroup

	var attempts, success, retries, skipped, failed atomic.Int64

	for _, u := range urls {
		if err := f.waitForSlot(ctx, sem); err != nil {
			break
		}
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, skip, err := f.fetchWithRetry(ctx, target, &attempts, &retries)
			if err != nil {
				failed.Add(1)
				f.log.Warnf("fetch", "%s: %v", target, err)
				return
			}
			if skip {
				skipped.Add(1)
				return
			}
			sinkMu.Lock()
			writeErr := sink.Write(rec)
			sinkMu.Unlock()
			if writeErr != nil {
				failed.Add(1)
				f.log.Errorf("fetch_write", "%s: %v", target, writeErr)
				return
			}
			success.Add(1)
		}(u)
	}
	wg.Wait()

	f.metrics.FetchAttempts.Add(attempts.Load())
	f.metrics.FetchSuccess.Add(success.Load())
	f.metrics.FetchRetries.Add(retries.Load())

	return Summary{
		Attempts: attempts.Load(),
		Success:  success.Load(),
		Retries:  retries.Load(),
		Skipped:  skipped.Load(),
		Errors:   failed.Load(),
	}, nil
}

// waitForSlot acquires a semaphore slot, bounded by context cancellation.
func (f *Fetcher) waitForSlot(ctx context.Context, sem chan struct{}) error {
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchWithRetry performs the invalid-URL fast-fail / retry-with-backoff
// logic from the component contract. Returns (record, skip, err): skip is
// true for a successful non-200 response (counted, not archived).
func (f *Fetcher) fetchWithRetry(ctx context.Context, target string, attempts, retries *atomic.Int64) (record.Record, bool, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return record.Record{}, false, fmt.Errorf("invalid URL: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Second * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return record.Record{}, false, ctx.Err()
			}
			retries.Add(1)
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return record.Record{}, false, err
			}
		}

		attempts.Add(1)
		rec, skip, err := f.fetchOnce(ctx, target)
		if err == nil {
			return rec, skip, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return record.Record{}, false, err
		}
	}
	return record.Record{}, false, fmt.Errorf("exhausted %d attempts: %w", f.cfg.MaxAttempts, lastErr)
}

// fetchOnce performs a single HTTP GET. A 200 response becomes a
// response-type Record with its original headers; other statuses are
// reported via skip=true.
func (f *Fetcher) fetchOnce(ctx context.Context, target string) (record.Record, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return record.Record{}, false, fmt.Errorf("invalid URL: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return record.Record{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return record.Record{}, true, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return record.Record{}, false, err
	}

	var headers [][2]string
	for k, vs := range resp.Header {
		for _, v := range vs {
			headers = append(headers, [2]string{k, v})
		}
	}

	return record.Record{
		Type:    record.TypeResponse,
		URL:     target,
		Status:  resp.StatusCode,
		Content: string(body),
		Headers: headers,
	}, false, nil
}

// isRetryable reports whether err is a network or timeout error eligible
// for retry, as opposed to a permanent failure like an invalid URL.
// *url.Error is unwrapped first: it satisfies net.Error itself, so checking
// net.Error first would treat every client error as retryable.
func isRetryable(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isRetryable(urlErr.Err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
