// Package httpclient es el cliente HTTP compartido por los adapters que
// hablan con APIs REST externas (hoy, Storage).
package httpclient

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
)

const (
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes acota lo que se lee de cualquier respuesta.
	maxResponseBytes = 1 << 20
)

var ErrNilClient = errors.New("httpclient: nil client")

type Options struct {
	// BaseURL vacío = solo URLs absolutas.
	BaseURL string
	Timeout time.Duration

	// Transport nil = http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	hc   *http.Client
	base string
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base != "" {
		u, err := url.ParseRequestURI(base)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid base url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("httpclient: base url must be http(s), got %q", u.Scheme)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := opts.Transport
	if tr == nil {
		tr = http.DefaultTransport
	}

	return &Client{
		hc:   &http.Client{Timeout: timeout, Transport: tr},
		base: base,
	}, nil
}

// BaseURL devuelve la base normalizada (sin "/" final).
func (c *Client) BaseURL() string { return c.base }

// HTTPError es cualquier respuesta fuera de 2xx.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, e.Body)
}

// DoJSON serializa in (si no es nil) y decodifica la respuesta en out (si no es nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: marshal json: %w", err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	raw, err := c.send(ctx, method, path, headers, contentType, body, true)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("httpclient: unmarshal json: %w", err)
	}
	return nil
}

// Do envía un body crudo (p. ej. una imagen) y devuelve la respuesta tal cual.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, contentType string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	return c.send(ctx, method, path, headers, contentType, rd, false)
}

func (c *Client) send(ctx context.Context, method, path string, headers map[string]string, contentType string, body io.Reader, wantJSON bool) ([]byte, error) {
	if c == nil || c.hc == nil {
		return nil, ErrNilClient
	}
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: new request: %w", err)
	}
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		if strings.TrimSpace(k) != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err != nil {
		return nil, fmt.Errorf("httpclient: read response: %w", err)
	}
	return raw, nil
}

// resolve acepta URLs absolutas o paths relativos a la base.
func (c *Client) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return "", errors.New("httpclient: empty url")
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path, nil
	case c.base == "":
		return "", fmt.Errorf("httpclient: relative path %q without base url", path)
	}
	return c.base + "/" + strings.TrimLeft(path, "/"), nil
}
