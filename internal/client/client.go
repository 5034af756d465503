// Package client reads reports from the Read API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/civicwatch/incident-reports/internal/api"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the Read API can't be reached or fails to
// serve the request. It is never returned for an empty report list.
var ErrUnavailable = errors.New("reports API unavailable")

const maxBody = 32 << 20

// Prm groups parameters of New.
type Prm struct {
	// Base URL of the Read API, e.g. http://localhost:5000.
	URL string

	// Request timeout, 30s if zero.
	Timeout time.Duration

	// Optional HTTP client, Timeout is ignored if set.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// Client is a Read API client.
type Client struct {
	log  *zap.Logger
	base *url.URL
	http *http.Client
}

// List is the report list with the number of indices skipped by the server.
type List struct {
	Reports      []api.Report
	ReadFailures int
}

// New returns Client of the Read API at the given URL.
func New(prm Prm) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(prm.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse API URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported API URL scheme %q", u.Scheme)
	}

	c := &Client{
		log:  prm.Logger,
		base: u,
		http: prm.HTTPClient,
	}

	if c.log == nil {
		c.log = zap.NewNop()
	}

	if c.http == nil {
		timeout := prm.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		c.http = &http.Client{Timeout: timeout}
	}

	return c, nil
}

// Reports fetches the report list.
func (c *Client) Reports(ctx context.Context) (List, error) {
	var res List

	h, err := c.get(ctx, api.RouteReports, &res.Reports)
	if err != nil {
		return List{}, err
	}

	if res.Reports == nil {
		res.Reports = []api.Report{}
	}

	if v := h.Get(api.ReadFailuresHeader); v != "" {
		res.ReadFailures, err = strconv.Atoi(v)
		if err != nil {
			c.log.Debug("invalid read failures header", zap.String("value", v))
		}
	}

	return res, nil
}

// Sync fetches the diagnostic synchronization result.
func (c *Client) Sync(ctx context.Context) (api.SyncResult, error) {
	var res api.SyncResult

	if _, err := c.get(ctx, api.RouteSync, &res); err != nil {
		return api.SyncResult{}, err
	}

	return res, nil
}

// Owner fetches the contract owner address.
func (c *Client) Owner(ctx context.Context) (string, error) {
	var res api.Owner

	if _, err := c.get(ctx, api.RouteOwner, &res); err != nil {
		return "", err
	}

	return res.Owner, nil
}

func (c *Client) get(ctx context.Context, route string, v any) (http.Header, error) {
	u := c.base.JoinPath(route)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	c.log.Debug("API response",
		zap.String("url", u.String()), zap.Int("status", resp.StatusCode),
		zap.String("request_id", resp.Header.Get(api.RequestIDHeader)))

	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, resp.Status, e.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	return resp.Header, nil
}
