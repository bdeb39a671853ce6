// Package yuman provides a client for the Yuman v1 REST API.
package yuman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the Yuman operations used by the reconciler.
type Client interface {
	// ListSites returns every site with its custom fields.
	ListSites(ctx context.Context) ([]Site, error)
	// ListMaterials returns the materials of a category, all categories when 0.
	ListMaterials(ctx context.Context, categoryID int64) ([]Material, error)
	// ListWorkorders returns every work order.
	ListWorkorders(ctx context.Context) ([]Workorder, error)
	// UpdateWorkorder patches a work order and returns its new state.
	UpdateWorkorder(ctx context.Context, id int64, patch map[string]any) (*Workorder, error)
	// CreateSite creates a site and returns it with its id.
	CreateSite(ctx context.Context, in SiteInput) (*Site, error)
	// CreateMaterial creates a material and returns it with its id.
	CreateMaterial(ctx context.Context, in MaterialInput) (*Material, error)
}

// RequestObserver receives every outbound call, typically to update metrics.
type RequestObserver interface {
	ObserveRequest(client, method string, status int, d time.Duration)
}

// StatusError is returned when Yuman answers with an error status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Option configures the Yuman client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) { c.limiter = l }
}

// WithObserver reports every request to obs.
func WithObserver(obs RequestObserver) Option {
	return func(c *httpClient) { c.observer = obs }
}

type httpClient struct {
	cfg      Config
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	backoff  time.Duration
	observer RequestObserver
}

// page is the pagination envelope of list calls.
type page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

// NewClient creates a Yuman client. Zero config values fall back to the API defaults.
func NewClient(cfg Config, opts ...Option) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.yuman.io/v1"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	cfg.PerPage = min(cfg.PerPage, 200)
	if cfg.MaxRetry < 0 {
		cfg.MaxRetry = 0
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	c := &httpClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: limiter,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListSites(ctx context.Context) ([]Site, error) {
	out, err := list[Site](ctx, c, "/sites", url.Values{"embed": {"fields,client"}})
	if err != nil {
		return nil, eris.Wrap(err, "yuman: list sites")
	}
	return out, nil
}

func (c *httpClient) ListMaterials(ctx context.Context, categoryID int64) ([]Material, error) {
	q := url.Values{"embed": {"fields,site"}}
	if categoryID != 0 {
		q.Set("category_id", strconv.FormatInt(categoryID, 10))
	}
	out, err := list[Material](ctx, c, "/materials", q)
	if err != nil {
		return nil, eris.Wrapf(err, "yuman: list materials (category=%d)", categoryID)
	}
	return out, nil
}

func (c *httpClient) ListWorkorders(ctx context.Context) ([]Workorder, error) {
	out, err := list[Workorder](ctx, c, "/workorders", url.Values{})
	if err != nil {
		return nil, eris.Wrap(err, "yuman: list workorders")
	}
	return out, nil
}

func (c *httpClient) UpdateWorkorder(ctx context.Context, id int64, patch map[string]any) (*Workorder, error) {
	body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/workorders/%d", id), nil, patch)
	if err != nil {
		return nil, eris.Wrapf(err, "yuman: update workorder %d", id)
	}
	var wo Workorder
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &wo); err != nil {
			return nil, eris.Wrapf(err, "yuman: unmarshal workorder %d", id)
		}
	}
	return &wo, nil
}

func (c *httpClient) CreateSite(ctx context.Context, in SiteInput) (*Site, error) {
	var site Site
	if err := c.create(ctx, "/sites", in, &site); err != nil {
		return nil, eris.Wrapf(err, "yuman: create site %q", in.Name)
	}
	return &site, nil
}

func (c *httpClient) CreateMaterial(ctx context.Context, in MaterialInput) (*Material, error) {
	var m Material
	if err := c.create(ctx, "/materials", in, &m); err != nil {
		return nil, eris.Wrapf(err, "yuman: create material %q on site %d", in.Name, in.SiteID)
	}
	return &m, nil
}

// create posts payload and decodes the created resource into out.
func (c *httpClient) create(ctx context.Context, path string, payload, out any) error {
	body, err := c.do(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal created resource")
	}
	return nil
}

// list walks every page of a list endpoint.
func list[T any](ctx context.Context, c *httpClient, path string, query url.Values) ([]T, error) {
	query.Set("per_page", strconv.Itoa(c.cfg.PerPage))

	var out []T
	for p := 1; ; p++ {
		query.Set("page", strconv.Itoa(p))
		body, err := c.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}

		var resp page[T]
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, eris.Wrapf(err, "unmarshal page %d", p)
		}
		out = append(out, resp.Items...)

		if p >= resp.TotalPages || len(resp.Items) == 0 {
			return out, nil
		}
	}
}

// do executes a request. 429 is retried honouring Retry-After and network
// errors back off exponentially, both up to MaxRetry; other errors fail at once.
// A POST is never resent after a network error since it may have been applied.
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "marshal request")
		}
		reqBody = b
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "vysync/1.0")

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.observe(method, 0, time.Since(start))
			if attempt > c.cfg.MaxRetry || ctx.Err() != nil || method == http.MethodPost {
				return nil, eris.Wrapf(err, "%s %s", method, path)
			}
			wait := c.backoffFor(attempt)
			zap.L().Warn("Yuman network error, retrying", zap.String("path", path), zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		c.observe(method, resp.StatusCode, time.Since(start))
		if readErr != nil {
			return nil, eris.Wrap(readErr, "read response body")
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt > c.cfg.MaxRetry {
				return nil, eris.Wrapf(&StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(body)},
					"too many 429, giving up after %d attempts", attempt)
			}
			wait := retryAfter(resp.Header, c.backoffFor(attempt))
			zap.L().Info("Yuman rate limit hit", zap.String("path", path), zap.Int("attempt", attempt), zap.Duration("retry_after", wait))
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	}
}

func (c *httpClient) backoffFor(attempt int) time.Duration {
	return c.backoff * time.Duration(1<<(attempt-1))
}

func (c *httpClient) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest("yuman", method, status, d)
	}
}

// retryAfter reads a Retry-After header in seconds, falling back to def.
func retryAfter(h http.Header, def time.Duration) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return def
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
