// Package shortener wraps the external link-shortening API. The contract is
// deliberately forgiving: any transport failure, timeout, or non-success
// response degrades to returning the input URL unchanged, so a broken
// shortener can never block or fail a delivery.
package shortener

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-keyword-bot/internal/config"
	"github.com/tbourn/go-keyword-bot/internal/metrics"
)

// Client calls the shortening service. The zero-key client is valid and
// disabled (Shorten becomes a passthrough).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// New constructs a Client from configuration.
func New(cfg config.ShortenerConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// response is the service's reply shape.
type response struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
}

// Shorten converts longURL into a shortlink. On any failure the input is
// returned unchanged.
func (c *Client) Shorten(ctx context.Context, longURL string) string {
	if !c.Enabled() {
		return longURL
	}

	apiURL := c.baseURL + "?api=" + url.QueryEscape(c.apiKey) + "&url=" + url.QueryEscape(longURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return longURL
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.fallback(longURL, err.Error())
		return longURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.fallback(longURL, resp.Status)
		return longURL
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		c.fallback(longURL, err.Error())
		return longURL
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		c.fallback(longURL, err.Error())
		return longURL
	}
	if r.Status != "success" || r.ShortenedURL == "" {
		c.fallback(longURL, "status="+r.Status)
		return longURL
	}

	metrics.ShortenerResults.WithLabelValues("shortened").Inc()
	return r.ShortenedURL
}

func (c *Client) fallback(longURL, reason string) {
	metrics.ShortenerResults.WithLabelValues("fallback").Inc()
	c.log.Warn().Str("url", longURL).Str("reason", reason).Msg("shortener fallback")
}
