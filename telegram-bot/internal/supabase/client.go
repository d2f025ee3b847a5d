// Package supabase is a small PostgREST client for the hosted Supabase
// tables used by the bot.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/tomoca-dev/Tomo-web/pkg/circuitbreaker"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
	Breaker    circuitbreaker.Config
	HTTPClient *http.Client
}

type Client struct {
	restURL    string
	serviceKey string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("supabase url is required")
	}
	if cfg.ServiceKey == "" {
		return nil, errors.New("supabase service key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	breakerCfg := cfg.Breaker
	breakerCfg.IsSuccessful = isBreakerSuccess

	return &Client{
		restURL:    base + "/rest/v1",
		serviceKey: cfg.ServiceKey,
		httpClient: httpClient,
		breaker:    circuitbreaker.New[[]byte]("supabase", breakerCfg, log),
	}, nil
}

// From starts a query against table.
func (c *Client) From(table string) *Query {
	return newQuery(c, table)
}

func (c *Client) do(ctx context.Context, method, path, rawQuery string, body interface{}, prefer string) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		return c.request(ctx, method, path, rawQuery, body, prefer)
	})
}

func (c *Client) request(ctx context.Context, method, path, rawQuery string, body interface{}, prefer string) ([]byte, error) {
	url := c.restURL + "/" + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, newError(resp.StatusCode, respBody)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(respBody) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	return respBody, nil
}

// isBreakerSuccess keeps client errors from tripping the breaker: a 4xx
// means the backend answered.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError
	}
	return errors.Is(err, context.Canceled)
}
