// Package strapi is a thin REST client for the headless CMS that stores
// warehouse documents, products and partners.
package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Pagination mirrors meta.pagination of list responses.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// Meta is the meta object of the response envelope.
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  Meta            `json:"meta"`
	Error *Error          `json:"error,omitempty"`
}

// Observer receives one call per completed request.
type Observer interface {
	ObserveCMSRequest(method, collection string, status int, elapsed time.Duration)
}

// Client wraps interactions with the CMS REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	observer   Observer
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver reports request metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a client for baseURL (e.g. http://cms:1337) using the
// API token as bearer credentials.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the CMS answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("strapi: health returned status %d", resp.StatusCode)
	}
	return nil
}

// List fetches a page of a collection into dest (a pointer to a slice).
func (c *Client) List(ctx context.Context, collection string, q *Query, dest any) (Meta, error) {
	env, err := c.do(ctx, http.MethodGet, collection, "", q, nil)
	if err != nil {
		return Meta{}, err
	}
	if err := decodeData(env.Data, dest); err != nil {
		return Meta{}, fmt.Errorf("strapi: decode %s list: %w", collection, err)
	}
	return env.Meta, nil
}

// Get fetches one record into dest.
func (c *Client) Get(ctx context.Context, collection, id string, q *Query, dest any) error {
	env, err := c.do(ctx, http.MethodGet, collection, id, q, nil)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &Error{Status: http.StatusNotFound, Name: "NotFoundError", Message: "Not Found"}
	}
	if err := decodeData(env.Data, dest); err != nil {
		return fmt.Errorf("strapi: decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Create posts {data: payload} and decodes the created record into dest.
func (c *Client) Create(ctx context.Context, collection string, payload any, dest any) error {
	env, err := c.do(ctx, http.MethodPost, collection, "", nil, payload)
	if err != nil {
		return err
	}
	return decodeData(env.Data, dest)
}

// Update sends a partial {data: payload} update.
func (c *Client) Update(ctx context.Context, collection, id string, payload any, dest any) error {
	env, err := c.do(ctx, http.MethodPut, collection, id, nil, payload)
	if err != nil {
		return err
	}
	return decodeData(env.Data, dest)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.do(ctx, http.MethodDelete, collection, id, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, collection, id string, q *Query, payload any) (envelope, error) {
	endpoint := c.baseURL + "/api/" + collection
	if id != "" {
		endpoint += "/" + id
	}
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(map[string]any{"data": payload})
		if err != nil {
			return envelope{}, fmt.Errorf("strapi: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, collection, 0, start)
		return envelope{}, fmt.Errorf("strapi: %s %s: %w", method, collection, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(method, collection, resp.StatusCode, start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("strapi: read body: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 400 {
			return envelope{}, fmt.Errorf("strapi: decode envelope: %w", err)
		}
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil {
			if env.Error.Status == 0 {
				env.Error.Status = resp.StatusCode
			}
			return envelope{}, env.Error
		}
		return envelope{}, &Error{Status: resp.StatusCode, Name: http.StatusText(resp.StatusCode)}
	}
	return env, nil
}

func (c *Client) observe(method, collection string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveCMSRequest(method, collection, status, time.Since(start))
}

func decodeData(data json.RawMessage, dest any) error {
	if dest == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}
