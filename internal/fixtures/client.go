// Package fixtures is a client for the API-Football fixtures endpoint.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/abonos/internal/domain"
)

const (
	DefaultBaseURL = "https://v3.football.api-sports.io"
	DefaultHost    = "v3.football.api-sports.io"
	DefaultTimeout = 15 * time.Second

	maxBody = 4 << 20
)

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Fixture holds the fields of an upstream fixture needed to reconcile matches.
type Fixture struct {
	ID          int64
	Date        string
	Timestamp   int64
	Venue       string
	Competition string
	Round       string
	Home        Team
	Away        Team
}

type Config struct {
	BaseURL string
	APIKey  string
	Host    string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	host    string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type apiResponse struct {
	Errors   json.RawMessage `json:"errors"`
	Response []apiFixture    `json:"response"`
}

type apiFixture struct {
	Fixture struct {
		ID        int64  `json:"id"`
		Date      string `json:"date"`
		Timestamp int64  `json:"timestamp"`
		Venue     struct {
			Name string `json:"name"`
		} `json:"venue"`
	} `json:"fixture"`
	League struct {
		Name  string `json:"name"`
		Round string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home Team `json:"home"`
		Away Team `json:"away"`
	} `json:"teams"`
}

func upstream(format string, args ...any) error {
	return fmt.Errorf("fixtures: %s: %w", fmt.Sprintf(format, args...), domain.ErrUpstreamUnavailable)
}

// Upcoming lists the next fixtures of teamID. Every failure, including a
// missing API key, wraps domain.ErrUpstreamUnavailable.
func (c *Client) Upcoming(ctx context.Context, teamID int64, next int) ([]Fixture, error) {
	if c.apiKey == "" {
		return nil, upstream("API key is not configured")
	}

	q := url.Values{}
	q.Set("team", strconv.FormatInt(teamID, 10))
	q.Set("next", strconv.Itoa(next))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fixtures?"+q.Encode(), nil)
	if err != nil {
		return nil, upstream("build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, upstream("request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, upstream("read body: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstream("status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, upstream("decode: %v", err)
	}
	if hasErrors(payload.Errors) {
		return nil, upstream("api errors: %s", string(payload.Errors))
	}

	out := make([]Fixture, 0, len(payload.Response))
	for _, f := range payload.Response {
		out = append(out, Fixture{
			ID:          f.Fixture.ID,
			Date:        f.Fixture.Date,
			Timestamp:   f.Fixture.Timestamp,
			Venue:       f.Fixture.Venue.Name,
			Competition: f.League.Name,
			Round:       f.League.Round,
			Home:        f.Teams.Home,
			Away:        f.Teams.Away,
		})
	}
	c.log.Info("fixtures fetched", "team", teamID, "count", len(out))
	return out, nil
}

// hasErrors reports whether the "errors" member carries anything. The API
// sends an empty array when there are none and an object otherwise.
func hasErrors(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "[]", "{}":
		return false
	}
	return true
}

// IsUpstream reports whether err came from the fixtures source.
func IsUpstream(err error) bool {
	return errors.Is(err, domain.ErrUpstreamUnavailable)
}
