package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMocked(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	tr := httpmock.NewMockTransport()
	c, err := New(Options{BaseURL: "https://storage.test/", Timeout: time.Second, Transport: tr})
	require.NoError(t, err)
	return c, tr
}

func TestNew_NormalizesAndValidatesBaseURL(t *testing.T) {
	c, err := New(Options{BaseURL: " https://storage.test// "})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.test", c.BaseURL())

	for _, bad := range []string{"storage.test", "ftp://storage.test", "://nope"} {
		_, err := New(Options{BaseURL: bad})
		assert.Errorf(t, err, "base=%q", bad)
	}

	c, err = New(Options{})
	require.NoError(t, err)
	assert.Empty(t, c.BaseURL())
}

func TestDoJSON_DecodesBody(t *testing.T) {
	c, tr := newMocked(t)
	tr.RegisterResponder(http.MethodPost, "https://storage.test/echo",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
			assert.Equal(t, "k", req.Header.Get("apikey"))
			return httpmock.NewStringResponse(200, `{"ok":true}`), nil
		})

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.DoJSON(context.Background(), http.MethodPost, "echo", map[string]string{"apikey": "k"}, map[string]any{"a": 1}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestDo_SendsRawBody(t *testing.T) {
	c, tr := newMocked(t)
	tr.RegisterResponder(http.MethodPost, "https://storage.test/upload",
		func(req *http.Request) (*http.Response, error) {
			b, _ := io.ReadAll(req.Body)
			assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, b)
			assert.Equal(t, "image/png", req.Header.Get("Content-Type"))
			assert.Empty(t, req.Header.Get("Accept"))
			return httpmock.NewStringResponse(200, `{"Key":"x"}`), nil
		})

	raw, err := c.Do(context.Background(), http.MethodPost, "/upload", nil, "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Key":"x"}`, string(raw))
}

func TestDo_Non2xxIsHTTPError(t *testing.T) {
	c, tr := newMocked(t)
	tr.RegisterResponder(http.MethodDelete, "https://storage.test/x",
		httpmock.NewStringResponder(500, " boom "))

	_, err := c.Do(context.Background(), http.MethodDelete, "https://storage.test/x", nil, "", nil)
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 500, he.StatusCode)
	assert.Equal(t, "boom", he.Body)
}

func TestDo_RelativePathWithoutBase(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), http.MethodGet, "relative", nil, "", nil)
	require.Error(t, err)

	var nilClient *Client
	_, err = nilClient.Do(context.Background(), http.MethodGet, "https://storage.test", nil, "", nil)
	assert.ErrorIs(t, err, ErrNilClient)
}
