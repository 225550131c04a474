// Package lemonapi is an HTTP client for the Little Lemon reservation API.
package lemonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"lemonbook/internal/metrics"
	"lemonbook/internal/models"
)

// Cookie names used by the server's session authentication.
const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
	CSRFHeader    = "X-CSRFToken"
)

// Client calls the reservation API on behalf of one principal.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter

	mu     sync.Mutex
	tokens *Tokens
}

// NewClient constructs a client with its own cookie jar.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// UseRedisCache configures optional Redis caching for working hours and branches.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outgoing requests. A non-positive rate disables it.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// SetSession seeds the cookie jar with an existing browser session.
func (c *Client) SetSession(sessionID, csrfToken string) {
	var cookies []*http.Cookie
	if sessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: SessionCookie, Value: sessionID, Path: "/"})
	}
	if csrfToken != "" {
		cookies = append(cookies, &http.Cookie{Name: CSRFCookie, Value: csrfToken, Path: "/"})
	}
	if len(cookies) > 0 {
		c.httpClient.Jar.SetCookies(c.baseURL, cookies)
	}
}

// CSRFToken returns the csrftoken cookie value, or "" when none is set.
func (c *Client) CSRFToken() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == CSRFCookie {
			return ck.Value
		}
	}
	return ""
}

// WithTokens returns a client for another principal. It shares the transport,
// cache and limiter but has its own cookie jar.
func (c *Client) WithTokens(tokens *Tokens) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: c.baseURL,
		httpClient: &http.Client{
			Timeout:   c.httpClient.Timeout,
			Transport: c.httpClient.Transport,
			Jar:       jar,
		},
		redis:    c.redis,
		cacheTTL: c.cacheTTL,
		limiter:  c.limiter,
		tokens:   tokens,
	}
}

// URL resolves a site path against the base URL.
func (c *Client) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	return c.baseURL.ResolveReference(ref).String()
}

// WorkingHours fetches a branch's opening and closing time.
func (c *Client) WorkingHours(ctx context.Context, branch string) (*models.WorkingHours, error) {
	path := "/api/booking/working_hours?branch=" + url.QueryEscape(branch)
	cacheKey := "lemonbook:hours:" + branch

	var hours models.WorkingHours
	if c.readCache(ctx, cacheKey, &hours) {
		return &hours, nil
	}
	if err := c.getJSON(ctx, "working_hours", path, &hours); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, hours)
	return &hours, nil
}

// Branches lists the restaurant branches that accept bookings.
func (c *Client) Branches(ctx context.Context) ([]string, error) {
	cacheKey := "lemonbook:branches"

	var wrap models.Branches
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Branches, nil
	}
	if err := c.getJSON(ctx, "branches", "/api/booking/branches", &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap)
	return wrap.Branches, nil
}

// maxBookingPages bounds how many list pages ListBookings follows.
const maxBookingPages = 100

// ListBookings fetches every booking visible to the current principal,
// following the envelope's next links until the last page. A bare array is
// accepted as the whole collection.
func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	all := []models.Booking{}
	path := "/api/booking"
	seen := make(map[string]bool)

	for page := 0; ; page++ {
		if page == maxBookingPages || seen[path] {
			return nil, fmt.Errorf("%w: booking pages do not end at %s", ErrInvalidResponse, path)
		}
		seen[path] = true

		var raw json.RawMessage
		if err := c.getJSON(ctx, "bookings", path, &raw); err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []models.Booking
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
			return append(all, list...), nil
		}

		var wrap models.BookingList
		if err := json.Unmarshal(trimmed, &wrap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		all = append(all, wrap.Results...)

		if wrap.Next == nil || *wrap.Next == "" {
			break
		}
		next, err := c.samePath(path, *wrap.Next)
		if err != nil {
			return nil, err
		}
		path = next
	}
	return all, nil
}

// samePath resolves a next link against the page it came from. Links to
// another host are refused so the bearer token never leaves the API.
func (c *Client) samePath(current, link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: next link: %v", ErrInvalidResponse, err)
	}
	base, err := url.Parse(c.URL(current))
	if err != nil {
		return "", fmt.Errorf("%w: next link: %v", ErrInvalidResponse, err)
	}
	u := base.ResolveReference(ref)
	if u.Host != "" && u.Host != c.baseURL.Host {
		return "", fmt.Errorf("%w: next link points to %s", ErrInvalidResponse, u.Host)
	}
	return u.RequestURI(), nil
}

// CreateBooking posts a reservation. A 401 yields ErrUnauthorized; any other
// status is decoded so the caller can inspect the server's verdict.
func (c *Client) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error) {
	resp, err := c.do(ctx, "create_booking", http.MethodPost, "/api/booking", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	var result models.BookingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: http %d: %v", ErrInvalidResponse, resp.StatusCode, err)
	}
	return &result, nil
}

// HealthCheck checks the API's /health/ endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, "health", http.MethodGet, "/health/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	resp, err := c.do(ctx, endpoint, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body any) (*http.Response, error) {
	if err := c.ensureFreshToken(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, endpoint, method, path, body, true)
}

func (c *Client) send(ctx context.Context, endpoint, method, path string, body any, authorize bool) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set(CSRFHeader, c.CSRFToken())
	}
	if authorize {
		if access := c.accessToken(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPIRequest(endpoint, 0)
		return nil, err
	}
	metrics.IncAPIRequest(endpoint, resp.StatusCode)
	return resp, nil
}

func decode(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: http %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
