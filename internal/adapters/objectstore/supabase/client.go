// Package supabase implementa ObjectStorage sobre la API REST de Storage.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pura-pata-api/internal/platform/httpclient"
	"pura-pata-api/internal/ports/storage"
)

type Config struct {
	BaseURL string // https://<project>.supabase.co
	Key     string // service role key
	Bucket  string
	Timeout time.Duration
}

type Client struct {
	http   *httpclient.Client
	key    string
	bucket string
}

// New crea el cliente. tr permite inyectar un RoundTripper (tests); nil = default.
func New(cfg Config, tr http.RoundTripper) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("supabase: base url required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("supabase: key required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("supabase: bucket required")
	}

	hc, err := httpclient.New(httpclient.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Transport: tr,
	})
	if err != nil {
		return nil, fmt.Errorf("supabase: %w", err)
	}

	return &Client{http: hc, key: cfg.Key, bucket: bucket}, nil
}

var _ storage.ObjectStorage = (*Client)(nil)

// Upload sube el objeto y devuelve su URL pública.
func (c *Client) Upload(ctx context.Context, obj storage.Object) (string, error) {
	p := strings.Trim(obj.Path, "/")
	if p == "" {
		return "", errors.New("supabase: object path required")
	}

	_, err := c.http.Do(ctx, http.MethodPost,
		"/storage/v1/object/"+c.bucket+"/"+p,
		c.headers(map[string]string{"x-upsert": "false"}),
		obj.ContentType,
		obj.Content,
	)
	if err != nil {
		return "", fmt.Errorf("supabase upload %s: %w", p, err)
	}
	return c.PublicURL(p), nil
}

// Delete borra el objeto referido por una URL pública del bucket.
func (c *Client) Delete(ctx context.Context, publicURL string) error {
	p, err := c.PathFromURL(publicURL)
	if err != nil {
		return err
	}

	body := map[string][]string{"prefixes": {p}}
	if err := c.http.DoJSON(ctx, http.MethodDelete, "/storage/v1/object/"+c.bucket, c.headers(nil), body, nil); err != nil {
		return fmt.Errorf("supabase delete %s: %w", p, err)
	}
	return nil
}

func (c *Client) PublicURL(path string) string {
	return c.http.BaseURL() + "/storage/v1/object/public/" + c.bucket + "/" + strings.Trim(path, "/")
}

// PathFromURL toma lo que sigue a "<bucket>/" en la URL.
func (c *Client) PathFromURL(publicURL string) (string, error) {
	marker := c.bucket + "/"
	i := strings.LastIndex(publicURL, marker)
	if i < 0 {
		return "", fmt.Errorf("supabase: url %q is not in bucket %s", publicURL, c.bucket)
	}
	p := strings.Trim(publicURL[i+len(marker):], "/")
	if j := strings.IndexAny(p, "?#"); j >= 0 {
		p = p[:j]
	}
	if p == "" {
		return "", fmt.Errorf("supabase: url %q has no object path", publicURL)
	}
	return p, nil
}

func (c *Client) headers(extra map[string]string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + c.key,
		"apikey":        c.key,
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}
