package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"postcardgo/pkg/config"
	"postcardgo/pkg/logging"
	"postcardgo/pkg/store"
	"postcardgo/pkg/tracker"
	"postcardgo/pkg/version"
)

var (
	defaultUserAgent = fmt.Sprintf("PostcardGo Video Assembler (PostcardGo/%s)", version.Version)
)

const maxRedirects = 5

// Client handles HTTP requests with per-provider queuing, caching, and tracking.
type Client struct {
	httpClient *http.Client
	cache      store.CacheStore
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	retries    int

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	cacheKey string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client.
func New(cfg *config.RequestConfig, c store.CacheStore, t *tracker.Tracker) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout),
			// Redirects are followed manually in executeWithBackoff so that
			// relative Location headers and redirect loops are under our control.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cache:   c,
		tracker: t,
		backoff: NewProviderBackoff(time.Duration(cfg.Backoff.BaseDelay), time.Duration(cfg.Backoff.MaxDelay)),
		retries: retries,
		queues:  make(map[string]chan job),
	}
}

// Get performs a GET request with queuing and caching if key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	provider, err := providerFor(u)
	if err != nil {
		return nil, err
	}

	// 1. Check Cache (Only if key is provided)
	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			slog.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		slog.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	// 2. Enqueue Request
	req, err := http.NewRequestWithContext(ctx, "GET", u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	j := job{req: req, headers: headers, cacheKey: cacheKey, respChan: respChan}

	c.dispatch(provider, j)

	// 3. Wait for Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

// Post performs a POST request with queuing.
func (c *Client) Post(ctx context.Context, u string, body []byte, contentType string) ([]byte, error) {
	return c.PostWithHeaders(ctx, u, body, map[string]string{"Content-Type": contentType})
}

// PostWithHeaders performs a POST request with custom headers and queuing.
func (c *Client) PostWithHeaders(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	provider, err := providerFor(u)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	j := job{req: req, headers: headers, respChan: respChan}

	c.dispatch(provider, j)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

func providerFor(u string) (string, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	return normalizeProvider(parsedURL.Host), nil
}

func normalizeProvider(host string) string {
	// Group subdomains into one provider name so requests serialize per service
	if strings.HasSuffix(host, ".pollinations.ai") || host == "pollinations.ai" {
		return "pollinations"
	}
	if strings.HasSuffix(host, ".elevenlabs.io") || host == "elevenlabs.io" {
		return "elevenlabs"
	}
	if strings.HasSuffix(host, "googleapis.com") {
		return "gemini"
	}
	if strings.HasSuffix(host, ".loremflickr.com") || host == "loremflickr.com" {
		return "stock"
	}
	return host
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[provider]
	if !ok {
		// Create new queue and start worker
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}

	// We block here if the queue is full, effectively throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		// Caller gave up before we could even enqueue
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		// Check context before processing
		if j.req.Context().Err() != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", provider, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		// Honor any provider-wide cooldown from earlier failures
		c.backoff.Wait(provider)

		// Apply User-Agent (Default if not provided)
		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", defaultUserAgent)
		}

		start := time.Now()
		body, err := c.executeWithBackoff(j.req)

		if logging.RequestLogger != nil {
			logging.RequestLogger.Info("Request Processed",
				"provider", provider, "method", j.req.Method, "url", j.req.URL.String(),
				"duration", time.Since(start), "error", err)
		}

		if err == nil {
			c.tracker.TrackAPISuccess(provider)
			c.backoff.RecordSuccess(provider)
			// Cache result (Only if key is provided)
			if j.cacheKey != "" {
				if err := c.cache.SetCache(context.Background(), j.cacheKey, body); err != nil {
					slog.Error("Failed to cache response", "url", j.req.URL, "error", err)
				}
			}
		} else {
			c.tracker.TrackAPIFailure(provider)
			c.backoff.RecordFailure(provider)
		}

		j.respChan <- jobResult{body: body, err: err}

		// Hardcoded safety gap to prevent hitting rate limits
		time.Sleep(100 * time.Millisecond)
	}
}

// executeWithBackoff attempts the request with exponential backoff on retryable
// errors, following up to maxRedirects redirects manually.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	baseDelay := 500 * time.Millisecond

	for attempt := 0; attempt < c.retries; attempt++ {
		// Verify context is still alive before dialing
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.doFollowingRedirects(req)

		if err != nil {
			// Check if the error is a context cancellation from OUR side
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}

			// Otherwise, it's a network error or server timeout
			slog.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)

			if err := sleepBackoff(req.Context(), attempt, baseDelay); err != nil {
				return nil, err
			}
			continue
		}

		// Handle Status Codes
		if resp.StatusCode == 429 || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)

			if err := sleepBackoff(req.Context(), attempt, baseDelay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("api error: status %d", resp.StatusCode)
		}

		// Success
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded")
}

// doFollowingRedirects issues the request and chases 3xx responses itself,
// resolving relative Location headers against the redirecting URL.
func (c *Client) doFollowingRedirects(req *http.Request) (*http.Response, error) {
	cur := req
	for hop := 0; ; hop++ {
		resp, err := c.httpClient.Do(cur)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		default:
			return resp, nil
		}

		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if loc == "" {
			return nil, fmt.Errorf("redirect without Location from %s", cur.URL)
		}
		if hop >= maxRedirects {
			return nil, fmt.Errorf("too many redirects fetching %s", req.URL)
		}

		target, err := cur.URL.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid redirect location %q: %w", loc, err)
		}

		// Redirect targets are fetched as GET, per browser convention for 301/302/303
		next, err := http.NewRequestWithContext(cur.Context(), "GET", target.String(), http.NoBody)
		if err != nil {
			return nil, err
		}
		next.Header = cur.Header.Clone()
		cur = next
	}
}

func sleepBackoff(ctx context.Context, attempt int, baseDelay time.Duration) error {
	sleepDur := baseDelay << attempt
	select {
	case <-time.After(sleepDur):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
