// Package httpx wraps net/http with the request shape the remote
// archive dialogue needs: per-request timeouts in whole seconds,
// caller-supplied request headers carried across calls, multipart
// uploads, and redirect responses surfaced to the caller instead of
// being followed.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Response is the outcome of a single request. Status and Header are
// taken from the response as received; redirects are never followed, so
// a 302 arrives here with its Location and Set-Cookie headers intact.
type Response struct {
	Body    []byte
	Status  int
	Header  http.Header
	Success bool
}

// Client issues synchronous GET and POST requests. Extra headers set
// via SetHeader are attached to every subsequent request, which is how
// the session cookie travels between calls.
type Client struct {
	client *http.Client
	header http.Header
}

// New returns a Client whose requests time out after timeoutSeconds.
func New(timeoutSeconds int) *Client {
	return &Client{
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		header: make(http.Header),
	}
}

// SetHeader sets an extra request header carried on every subsequent
// request, replacing any previous value for the key.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// ClearHeaders drops all extra request headers.
func (c *Client) ClearHeaders() {
	c.header = make(http.Header)
}

// Get issues a GET and reads the whole response body.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	return c.do(req)
}

// PostForm issues a POST with an application/x-www-form-urlencoded
// body. The caller composes the body string, including any URL
// escaping, so the bytes on the wire are exactly what was given.
func (c *Client) PostForm(ctx context.Context, url, body string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// PostMultipart issues a multipart/form-data POST carrying one file
// part followed by the given form fields.
func (c *Client) PostMultipart(ctx context.Context, url, fileField, fileName string, fileData []byte, fields map[string]string) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, fmt.Errorf("httpx: file part: %w", err)
	}
	if _, err := part.Write(fileData); err != nil {
		return nil, fmt.Errorf("httpx: file part: %w", err)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("httpx: field %s: %w", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("httpx: finish multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: read body: %w", err)
	}

	return &Response{
		Body:    body,
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Success: resp.StatusCode >= 200 && resp.StatusCode < 400,
	}, nil
}
