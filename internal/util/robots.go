package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers whether a remote image may be downloaded according
// to its host's robots.txt. Parsed files are cached per host.
type RobotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.RWMutex
	httpClient *http.Client
	userAgent  string
}

// NewRobotsChecker creates a checker. client may be nil.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		cache:      make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
	}
}

// CanFetch reports whether rawURL may be fetched and the host's crawl delay.
// An unreachable or malformed robots.txt allows the fetch.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	agent := NormalizeUserAgent(r.userAgent)
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	allowed := data.TestAgent(path, agent)

	var crawlDelay time.Duration
	if group := data.FindGroup(agent); group != nil {
		crawlDelay = group.CrawlDelay
	}
	return allowed, crawlDelay, nil
}

func (r *RobotsChecker) robotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// FromResponse maps 4xx to allow-all and 5xx to disallow-all
	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data, nil
}

// NormalizeUserAgent returns the product token robots.txt groups match on
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
