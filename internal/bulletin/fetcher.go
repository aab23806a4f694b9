package bulletin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/spimexpulse/internal/logger"
)

// DatePlaceholder is replaced by the trade date (YYYYMMDD) in the URL template.
const DatePlaceholder = "{date}"

// FetchStatus is the outcome of retrieving one bulletin.
type FetchStatus int

const (
	// FetchDownloaded means the bulletin was saved into the workspace.
	FetchDownloaded FetchStatus = iota
	// FetchNotFound means the exchange published nothing for that date (weekend, holiday).
	FetchNotFound
	// FetchFailed means the download failed after retries; Err holds the cause.
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchDownloaded:
		return "downloaded"
	case FetchNotFound:
		return "not_found"
	case FetchFailed:
		return "failed"
	default:
		return fmt.Sprintf("FetchStatus(%d)", int(s))
	}
}

// FetchResult describes what happened to one requested date.
type FetchResult struct {
	Date   time.Time
	URL    string
	Status FetchStatus
	Path   string // set when Status == FetchDownloaded
	Err    error  // set when Status == FetchFailed
}

// FetcherConfig configures a Fetcher.
//
// Fields:
//   - URLTemplate: remote location with the "{date}" placeholder.
//   - Timeout: per-request timeout of the default HTTP client.
//   - MaxParallel: concurrent downloads (min 1).
//   - MaxRetries: extra attempts for transient failures (0 = single attempt).
//   - RetryInterval: initial backoff interval.
type FetcherConfig struct {
	URLTemplate   string
	Timeout       time.Duration
	MaxParallel   int
	MaxRetries    int
	RetryInterval time.Duration
}

// Fetcher downloads daily bulletins over HTTP.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client is replaced by NewHTTPClient(cfg.Timeout).
func NewFetcher(cfg FetcherConfig, client *http.Client) *Fetcher {
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}
	return &Fetcher{cfg: cfg, client: client}
}

// NewHTTPClient returns a client with explicit dial, TLS and overall timeouts;
// http.DefaultClient has none.
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}

// URLFor returns the remote location of the bulletin for date.
func (f *Fetcher) URLFor(date time.Time) string {
	return strings.ReplaceAll(f.cfg.URLTemplate, DatePlaceholder, date.Format(fileDateLayout))
}

// Fetch downloads the bulletins for dates into ws, returning one result per date in input order.
//
// Behavior:
//   - 200 → FetchDownloaded (file written to ws.PathFor(date)).
//   - 404/410 → FetchNotFound; this is not an error.
//   - transport errors, 5xx and 429 are retried with exponential backoff, then FetchFailed.
//   - any other status → FetchFailed without retry.
//
// The returned error is non-nil only when ctx is cancelled; per-date failures are reported
// through FetchResult so the caller can decide the policy.
func (f *Fetcher) Fetch(ctx context.Context, ws *Workspace, dates []time.Time) ([]FetchResult, error) {
	results := make([]FetchResult, len(dates))
	if len(dates) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, f.cfg.MaxParallel)

dispatch:
	for i, d := range dates {
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break dispatch
		}

		g.Go(func() error {
			defer func() { <-sem }()
			res, err := f.fetchOne(gctx, ws, d)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, ws *Workspace, date time.Time) (FetchResult, error) {
	url := f.URLFor(date)
	path := ws.PathFor(date)
	res := FetchResult{Date: date, URL: url}
	log := logger.Ctx(ctx).With().Str("url", url).Logger()
	start := time.Now()

	var status FetchStatus
	op := func() error {
		st, err := f.download(ctx, url, path)
		status = st
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.cfg.RetryInterval
	policy.MaxElapsedTime = 0 // bounded by MaxRetries instead

	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.cfg.MaxRetries)), ctx),
		func(err error, wait time.Duration) {
			log.Warn().Dur("retry_in", wait).Err(err).Msg("bulletin download retry")
		},
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil {
		res.Status = FetchFailed
		res.Err = err
		log.Error().Dur("elapsed", time.Since(start)).Err(err).Msg("bulletin download failed")
		return res, nil
	}

	res.Status = status
	if status == FetchDownloaded {
		res.Path = path
	}
	log.Debug().Str("status", status.String()).Dur("elapsed", time.Since(start)).Msg("bulletin fetched")
	return res, nil
}

// download performs one attempt. Errors wrapped in backoff.Permanent are not retried.
func (f *Fetcher) download(ctx context.Context, url, path string) (FetchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchFailed, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchFailed, fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := writeFile(path, resp.Body); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				return FetchFailed, backoff.Permanent(err)
			}
			return FetchFailed, err // body read interrupted, worth another attempt
		}
		return FetchDownloaded, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return FetchNotFound, nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return FetchFailed, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	default:
		return FetchFailed, backoff.Permanent(fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode))
	}
}

func writeFile(path string, body io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("read body: %w", err)
	}
	return out.Close()
}
