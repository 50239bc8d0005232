// Package remote is the HTTP client for the document Q&A server: upload a
// document, ask a question about it, list documents and check health.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// maxErrorBody caps how much of a failure response is read for its detail.
const maxErrorBody = 1 << 20

// ErrTooManyRedirects is returned when a request exceeds MaxRedirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// StatusError is a non-2xx response. Detail is the server's human-readable
// explanation, empty when the body carried none.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// ResponseError is a 2xx response whose body could not be decoded. The
// server answered, so it is not a transport failure.
type ResponseError struct {
	StatusCode int
	Err        error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unreadable response (status %d): %v", e.StatusCode, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration // 0 means no client-side timeout
	MaxRedirects int
	DocumentsTTL time.Duration
	HTTPClient   *http.Client // optional; Jar and CheckRedirect are set on a copy
}

// Client talks to the server. It keeps cookies across calls and follows
// redirects up to a limit.
type Client struct {
	base  *url.URL
	http  *http.Client
	cache *cache.Cache
	ttl   time.Duration
}

// New creates a Client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		hc = &copied
	}
	hc.Jar = jar
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
	}
	maxRedirects := opts.MaxRedirects
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("after %d redirects: %w", maxRedirects, ErrTooManyRedirects)
		}
		return nil
	}

	ttl := opts.DocumentsTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Client{
		base:  base,
		http:  hc,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}, nil
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// do sends req and, for 2xx responses, decodes the JSON body into out when
// out is non-nil. Non-2xx responses become *StatusError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ResponseError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding %s response: %w", req.URL.Path, err)}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// parseDetail extracts the "detail" field of an error body. A string detail
// is returned as-is; a validation list joins each entry's "msg".
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	if string(envelope.Detail) == "null" {
		return ""
	}
	return string(envelope.Detail)
}
