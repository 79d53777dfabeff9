package clashapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.clashroyale.com/v1"

// Client calls the Clash Royale API. The zero value is not usable; construct
// with NewClient, or fill BaseURL and HTTPClient directly in tests.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client that authenticates every request with the given
// API key as a bearer token and spreads requests over the per-minute budget.
func NewClient(baseURL, apiKey string, requestsPerMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 40
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = 15 * time.Second
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clash api GET %s: status %d: %s", e.Path, e.Status, e.Body)
}

// IsNotFound reports whether err is an APIError for an unknown tag.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// BattleLog fetches a player's battle log, ordered newest first.
func (c *Client) BattleLog(ctx context.Context, tag string) ([]Battle, error) {
	var out []Battle
	if err := c.get(ctx, "/players/"+EncodeTag(tag)+"/battlelog", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Player fetches a player profile.
func (c *Client) Player(ctx context.Context, tag string) (*Player, error) {
	var out Player
	if err := c.get(ctx, "/players/"+EncodeTag(tag), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentRiverRace fetches a clan's current river race standings.
func (c *Client) CurrentRiverRace(ctx context.Context, clanTag string) (*RiverRace, error) {
	var out RiverRace
	if err := c.get(ctx, "/clans/"+EncodeTag(clanTag)+"/currentriverrace", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("http request %s: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Path: path, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}
