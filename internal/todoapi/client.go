// Package todoapi talks to the to-do REST endpoint:
//
//	GET  {endpoint}                -> []Todo
//	POST {endpoint}                -> Todo
//	PUT  {endpoint}/{id}           -> Todo
//	POST {endpoint}/{id}/comments  -> Todo
package todoapi

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

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Makepad-fr/tada/internal/model"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client issues requests against a single endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	token    string
	metrics  *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithMetrics records every request on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New validates endpoint and returns a client for it.
func New(endpoint string, opts ...Option) (*Client, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ValidateEndpoint reports whether endpoint is an absolute http(s) URL.
func ValidateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint must be an absolute http(s) URL, got %q", endpoint)
	}
	return nil
}

// Endpoint returns the base URL without a trailing slash.
func (c *Client) Endpoint() string { return c.endpoint }

// List fetches every todo.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, "list", http.MethodGet, c.endpoint, nil, todoListSchema, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create submits fields and returns the server's new todo.
func (c *Client) Create(ctx context.Context, fields model.Fields) (model.Todo, error) {
	if fields == nil {
		fields = model.Fields{}
	}
	var todo model.Todo
	err := c.do(ctx, "create", http.MethodPost, c.endpoint, fields, todoSchema, &todo)
	return todo, err
}

// Update sends changed fields for id and returns the server's representation.
func (c *Client) Update(ctx context.Context, id model.ID, changes model.Fields) (model.Todo, error) {
	target, err := c.todoURL("update", http.MethodPut, id)
	if err != nil {
		return model.Todo{}, err
	}
	if changes == nil {
		changes = model.Fields{}
	}
	var todo model.Todo
	err = c.do(ctx, "update", http.MethodPut, target, changes, todoSchema, &todo)
	return todo, err
}

// AddComment appends a comment to id and returns the updated todo.
func (c *Client) AddComment(ctx context.Context, id model.ID, content string) (model.Todo, error) {
	target, err := c.todoURL("comment", http.MethodPost, id)
	if err != nil {
		return model.Todo{}, err
	}
	var todo model.Todo
	body := map[string]string{"content": content}
	err = c.do(ctx, "comment", http.MethodPost, target+"/comments", body, todoSchema, &todo)
	return todo, err
}

func (c *Client) todoURL(op, method string, id model.ID) (string, error) {
	if id.IsZero() {
		return "", &RequestError{Op: op, Method: method, URL: c.endpoint, Err: errors.New("empty id")}
	}
	return c.endpoint + "/" + url.PathEscape(id.String()), nil
}

func (c *Client) do(ctx context.Context, op, method, target string, body any, schema *jsonschema.Schema, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.observe(op, start, err) }()

	fail := func(status int, cause error) error {
		return &RequestError{Op: op, Method: method, URL: target, Status: status, Err: cause}
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fail(0, fmt.Errorf("encode body: %w", err))
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, nil)
	}
	if err := validate(schema, raw); err != nil {
		return fail(resp.StatusCode, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
