// Package client talks to the reporting API. It builds requests from logical
// parameters, maps responses into canonical records and caches the mapped
// results.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"yieldboard/cache"
	"yieldboard/mapper"
)

const (
	DefaultChunkSize = 2000
	DefaultCacheTTL  = 5 * time.Minute
	apiPrefix        = "/api/v1"
)

type Client struct {
	base      string
	http      *http.Client
	cache     *cache.Cache
	log       *logrus.Logger
	apiKey    string
	chunkSize int
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithCache(cc *cache.Cache) Option     { return func(c *Client) { c.cache = cc } }
func WithLogger(l *logrus.Logger) Option   { return func(c *Client) { c.log = l } }
func WithAPIKey(key string) Option         { return func(c *Client) { c.apiKey = key } }

func WithChunkSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// New returns a client rooted at base (scheme and host, no /api/v1 suffix).
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:      strings.TrimRight(base, "/"),
		http:      &http.Client{Timeout: 60 * time.Second},
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New(DefaultCacheTTL)
	}
	if c.log == nil {
		c.log = logrus.New()
		c.log.SetOutput(io.Discard)
	}
	return c
}

func (c *Client) Cache() *cache.Cache { return c.cache }

// Invalidate drops cached results whose key starts with prefix, typically an
// endpoint path.
func (c *Client) Invalidate(prefix string) int {
	n := c.cache.InvalidatePrefix(prefix)
	c.log.WithFields(logrus.Fields{"prefix": prefix, "dropped": n}).Debug("cache invalidated")
	return n
}

func (c *Client) ClearCache() {
	c.cache.Clear()
	c.log.Debug("cache cleared")
}

func (c *Client) url(route string, params url.Values) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if !strings.HasPrefix(route, apiPrefix+"/") {
		route = apiPrefix + route
	}
	u := c.base + route
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// do executes one request and decodes a JSON body into out. Every failure is
// returned as a *FetchError.
func (c *Client) do(ctx context.Context, method, route string, params url.Values, body any, out any) error {
	target := c.url(route, params)
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &FetchError{Method: method, URL: target, Err: fmt.Errorf("encode body: %w", err)}
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return &FetchError{Method: method, URL: target, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	method, target := req.Method, req.URL.String()
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	entry := c.log.WithFields(logrus.Fields{
		"method":  method,
		"url":     target,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	})
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Method: method, URL: target, Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := &FetchError{Method: method, URL: target, Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
		var msg struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil {
			fe.Message = msg.Message
			if fe.Message == "" {
				fe.Message = msg.Error
			}
		}
		entry.Warn("request failed")
		return fe
	}
	entry.Debug("request completed")
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &FetchError{Method: method, URL: target, Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// ImportQuery fetches raw rows. GET requests carry params in the query
// string; POST requests send body as JSON.
func (c *Client) ImportQuery(ctx context.Context, route string, params url.Values, method string, body any) ([]mapper.Raw, error) {
	if method == "" {
		method = http.MethodGet
	}
	var rows []mapper.Raw
	if err := c.do(ctx, method, route, params, body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ImportChunked posts ids in batches of the configured chunk size, one batch
// at a time, each as {field: batch, ...extra}. The context is checked between
// batches: on cancellation the rows gathered so far are returned with the
// context error and callers are expected to discard them. A failing batch
// aborts the import and no rows are returned.
func (c *Client) ImportChunked(ctx context.Context, route, field string, ids []string, extra map[string]any) ([]mapper.Raw, error) {
	batches := (len(ids) + c.chunkSize - 1) / c.chunkSize
	var out []mapper.Raw
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			c.log.WithFields(logrus.Fields{"route": route, "completed": b, "batches": batches}).Info("chunked import cancelled")
			return out, err
		}
		lo := b * c.chunkSize
		hi := min(lo+c.chunkSize, len(ids))
		body := make(map[string]any, len(extra)+1)
		for k, v := range extra {
			body[k] = v
		}
		body[field] = ids[lo:hi]

		rows, err := c.ImportQuery(ctx, route, nil, http.MethodPost, body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return out, ctxErr
			}
			return nil, &BatchError{Route: route, Batch: b, Batches: batches, Err: err}
		}
		out = append(out, rows...)
	}
	return out, nil
}

// FetchWithCache returns the mapped rows for a GET of route. A cached result
// under key is returned without a network call; on a miss the response must
// be a JSON array, every row is mapped and the mapped slice is cached. An
// empty key is derived from route and params.
func FetchWithCache[T any](ctx context.Context, c *Client, route string, params url.Values, key string, mapRow func(mapper.Raw) T) ([]T, error) {
	return fetchMapped(ctx, c, route, params, key, mapper.Schema{}, mapRow)
}

func fetchMapped[T any](ctx context.Context, c *Client, route string, params url.Values, key string, schema mapper.Schema, mapRow func(mapper.Raw) T) ([]T, error) {
	if key == "" {
		key = cache.Key(route, params)
	}
	if v, ok := c.cache.Get(key); ok {
		if cached, ok := v.([]T); ok {
			return cached, nil
		}
	}
	rows, err := c.ImportQuery(ctx, route, params, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	out := mapRows(c, schema, rows, mapRow)
	c.cache.Set(key, out)
	return out, nil
}

func mapRows[T any](c *Client, schema mapper.Schema, rows []mapper.Raw, mapRow func(mapper.Raw) T) []T {
	if len(schema.Fields) > 0 {
		for i, row := range rows {
			if problems := schema.Check(row); len(problems) > 0 {
				c.log.WithFields(logrus.Fields{"schema": schema.Name, "row": i, "problems": problems}).Debug("row does not match schema")
			}
		}
	}
	return mapper.MapAll(rows, mapRow)
}

// cached memoizes an arbitrary fetch under key.
func cached[T any](c *Client, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		if hit, ok := v.(T); ok {
			return hit, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.cache.Set(key, v)
	return v, nil
}
