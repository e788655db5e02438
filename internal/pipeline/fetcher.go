package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/util"
)

const fetchAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// ErrDisallowed is returned when robots.txt forbids downloading an image
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher loads images from local files or http(s) URLs
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	robots    *util.RobotsChecker // nil skips robots.txt
	mu        sync.Mutex
	nextFetch map[string]time.Time // host -> earliest time allowed by Crawl-delay
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		nextFetch: make(map[string]time.Time),
	}
}

// RespectRobots makes remote loads honor robots.txt rules and crawl delays
func (f *Fetcher) RespectRobots() {
	f.robots = util.NewRobotsChecker(f.httpClient, f.userAgent)
}

// checkRobots returns ErrDisallowed or waits out the host's crawl delay
func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) error {
	if f.robots == nil {
		return nil
	}
	allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}
	if delay <= 0 {
		return nil
	}

	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	f.mu.Lock()
	now := time.Now()
	at := f.nextFetch[host]
	if at.Before(now) {
		at = now
	}
	f.nextFetch[host] = at.Add(delay)
	f.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchResult contains the fetched image and metadata
type FetchResult struct {
	Data        []byte
	ContentType string
	FinalURL    string
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// Fetch retrieves an image from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Data:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures (5xx, 429, network errors)
// with linear backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil || attempt == fetchAttempts {
			break
		}
		fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
	}
	return nil, lastErr
}

// Load implements worker.ImageLoader: ref is an http(s) URL or a file path.
// The image is returned as a data URL.
func (f *Fetcher) Load(ctx context.Context, ref string) (string, error) {
	var (
		data        []byte
		contentType string
	)

	if isURL(ref) {
		if err := f.checkRobots(ctx, ref); err != nil {
			return "", err
		}
		result, err := f.FetchWithRetry(ctx, ref)
		if err != nil {
			return "", err
		}
		data, contentType = result.Data, result.ContentType
	} else {
		file, err := os.Open(ref)
		if err != nil {
			return "", err
		}
		defer file.Close()
		if data, err = readLimited(file, f.maxBytes); err != nil {
			return "", fmt.Errorf("read %s: %w", ref, err)
		}
	}

	mimeType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "image/") {
		mimeType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", ref, mimeType)
	}

	p, err := imagedata.Parse("data:" + mimeType + ";base64," + imagedata.Encode(data))
	if err != nil {
		return "", err
	}
	return p.DataURL(), nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxBytes)
	}
	return data, nil
}

// isRetryableFetchError reports whether a fetch failure is worth retrying
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "fetch:") &&
		(strings.Contains(msg, "connection refused") ||
			strings.Contains(msg, "connection reset") ||
			strings.Contains(msg, "EOF"))
}
