// Package vcom provides a client for the meteocontrol VCOM API v2.
package vcom

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

// Client defines the VCOM operations used by the reconciler.
type Client interface {
	// Systems lists every system of the account.
	Systems(ctx context.Context) ([]System, error)
	// SystemDetails returns the address, coordinates and commission date of a system.
	SystemDetails(ctx context.Context, systemKey string) (*SystemDetails, error)
	// TechnicalData returns the nominal power, panels and string layout of a system.
	TechnicalData(ctx context.Context, systemKey string) (*TechnicalData, error)
	// Inverters lists the inverters of a system.
	Inverters(ctx context.Context, systemKey string) ([]Inverter, error)
	// InverterDetails returns vendor and model of an inverter.
	InverterDetails(ctx context.Context, systemKey, inverterID string) (*InverterDetails, error)
	// Tickets lists tickets with the given status, all tickets when empty.
	Tickets(ctx context.Context, status string) ([]Ticket, error)
	// UpdateTicket patches a ticket.
	UpdateTicket(ctx context.Context, ticketID string, update TicketUpdate) error
	// CloseTicket closes a ticket with a summary.
	CloseTicket(ctx context.Context, ticketID, summary string) error
}

// RequestObserver receives every outbound call, typically to update metrics.
type RequestObserver interface {
	ObserveRequest(client, method string, status int, d time.Duration)
}

// StatusError is returned when VCOM answers with a non-success status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Option configures the VCOM client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) { c.limiter = l }
}

// WithBackoff sets the initial retry delay, doubled on each attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) { c.backoff = d }
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

// NewClient creates a VCOM client. Zero config values fall back to the API defaults.
func NewClient(cfg Config, opts ...Option) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.meteocontrol.de/v2"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 90
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}

	interval := time.Minute / time.Duration(cfg.RequestsPerMinute)
	if minDelay := time.Duration(cfg.MinDelayMS) * time.Millisecond; minDelay > interval {
		interval = minDelay
	}

	c := &httpClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Systems(ctx context.Context) ([]System, error) {
	var out []System
	if err := c.getData(ctx, "/systems", nil, &out); err != nil {
		return nil, eris.Wrap(err, "vcom: list systems")
	}
	return out, nil
}

func (c *httpClient) SystemDetails(ctx context.Context, systemKey string) (*SystemDetails, error) {
	var out SystemDetails
	if err := c.getData(ctx, "/systems/"+url.PathEscape(systemKey), nil, &out); err != nil {
		return nil, eris.Wrapf(err, "vcom: system %s", systemKey)
	}
	return &out, nil
}

func (c *httpClient) TechnicalData(ctx context.Context, systemKey string) (*TechnicalData, error) {
	var out TechnicalData
	if err := c.getData(ctx, "/systems/"+url.PathEscape(systemKey)+"/technical-data", nil, &out); err != nil {
		return nil, eris.Wrapf(err, "vcom: technical data of %s", systemKey)
	}
	return &out, nil
}

func (c *httpClient) Inverters(ctx context.Context, systemKey string) ([]Inverter, error) {
	var out []Inverter
	if err := c.getData(ctx, "/systems/"+url.PathEscape(systemKey)+"/inverters", nil, &out); err != nil {
		return nil, eris.Wrapf(err, "vcom: inverters of %s", systemKey)
	}
	return out, nil
}

func (c *httpClient) InverterDetails(ctx context.Context, systemKey, inverterID string) (*InverterDetails, error) {
	var out InverterDetails
	path := "/systems/" + url.PathEscape(systemKey) + "/inverters/" + url.PathEscape(inverterID)
	if err := c.getData(ctx, path, nil, &out); err != nil {
		return nil, eris.Wrapf(err, "vcom: inverter %s of %s", inverterID, systemKey)
	}
	return &out, nil
}

func (c *httpClient) Tickets(ctx context.Context, status string) ([]Ticket, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var out []Ticket
	if err := c.getData(ctx, "/tickets", q, &out); err != nil {
		return nil, eris.Wrapf(err, "vcom: list tickets (status=%s)", status)
	}
	return out, nil
}

func (c *httpClient) UpdateTicket(ctx context.Context, ticketID string, update TicketUpdate) error {
	if _, err := c.do(ctx, http.MethodPatch, "/tickets/"+url.PathEscape(ticketID), nil, update); err != nil {
		return eris.Wrapf(err, "vcom: update ticket %s", ticketID)
	}
	return nil
}

func (c *httpClient) CloseTicket(ctx context.Context, ticketID, summary string) error {
	if summary == "" {
		summary = "Closed via API"
	}
	return c.UpdateTicket(ctx, ticketID, TicketUpdate{Status: TicketClosed, Summary: summary})
}

// getData performs a GET and decodes the "data" envelope into out.
func (c *httpClient) getData(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return eris.Wrap(err, "unmarshal data")
	}
	return nil
}

// do executes a request under the rate limiter. 429 honours Retry-After, 5xx
// and network errors back off exponentially, 4xx fail at once.
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

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("X-API-KEY", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "vysync/1.0")
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.observe(method, 0, time.Since(start))
			lastErr = eris.Wrapf(err, "%s %s", method, path)
			if attempt < c.cfg.MaxAttempts && ctx.Err() == nil {
				if err := sleep(ctx, c.backoffFor(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		c.observe(method, resp.StatusCode, time.Since(start))
		if readErr != nil {
			return nil, eris.Wrap(readErr, "read response body")
		}

		statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = statusErr
			if attempt < c.cfg.MaxAttempts {
				wait := retryAfter(resp.Header, c.backoffFor(attempt))
				zap.L().Warn("VCOM rate limit hit", zap.String("path", path), zap.Duration("retry_after", wait))
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = statusErr
			if attempt < c.cfg.MaxAttempts {
				zap.L().Warn("VCOM server error, retrying", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
				if err := sleep(ctx, c.backoffFor(attempt)); err != nil {
					return nil, err
				}
				continue
			}
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, statusErr
		default:
			return body, nil
		}
	}
	return nil, eris.Wrapf(lastErr, "giving up after %d attempts", c.cfg.MaxAttempts)
}

func (c *httpClient) backoffFor(attempt int) time.Duration {
	return c.backoff * time.Duration(1<<(attempt-1))
}

func (c *httpClient) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest("vcom", method, status, d)
	}
}

// retryAfter reads a Retry-After header in seconds, falling back to def.
func retryAfter(h http.Header, def time.Duration) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
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
