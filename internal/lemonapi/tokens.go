package lemonapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew renews the access token this long before it expires.
const refreshSkew = 30 * time.Second

// Tokens is a JWT access/refresh pair issued by /api/token/.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessExpiry returns the exp claim of the access token. The signature is
// not verified; the server does that.
func (t *Tokens) AccessExpiry() (time.Time, bool) {
	if t == nil || t.Access == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.Access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// NeedsRefresh reports whether the access token expires within the skew.
func (t *Tokens) NeedsRefresh(now time.Time) bool {
	if t == nil || t.Refresh == "" {
		return false
	}
	exp, ok := t.AccessExpiry()
	if !ok {
		return false
	}
	return !now.Add(refreshSkew).Before(exp)
}

// Login exchanges credentials for a token pair and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.send(ctx, "token", http.MethodPost, "/api/token/", body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tokens Tokens
	if err := decode(resp, &tokens); err != nil {
		return nil, err
	}
	if tokens.Access == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrInvalidResponse)
	}

	c.mu.Lock()
	c.tokens = &tokens
	c.mu.Unlock()
	return &tokens, nil
}

// Tokens returns a copy of the current token pair, or nil.
func (c *Client) Tokens() *Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		return nil
	}
	cp := *c.tokens
	return &cp
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Access
}

func (c *Client) ensureFreshToken(ctx context.Context) error {
	c.mu.Lock()
	current := c.tokens
	c.mu.Unlock()

	if !current.NeedsRefresh(time.Now()) {
		return nil
	}

	body := map[string]string{"refresh": current.Refresh}
	resp, err := c.send(ctx, "token_refresh", http.MethodPost, "/api/token/refresh/", body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var renewed Tokens
	if err := decode(resp, &renewed); err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	if renewed.Refresh == "" {
		renewed.Refresh = current.Refresh
	}

	c.mu.Lock()
	c.tokens = &renewed
	c.mu.Unlock()
	return nil
}
