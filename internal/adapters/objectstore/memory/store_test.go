package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pura-pata-api/internal/ports/storage"
)

func TestStore_UploadAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New("http://files.test/")

	url, err := s.Upload(ctx, storage.Object{Path: "dogs/photos/a.png", ContentType: "image/png", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/dogs/photos/a.png", url)

	o, ok := s.Get("dogs/photos/a.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", o.ContentType)

	require.NoError(t, s.Delete(ctx, url))
	assert.Error(t, s.Delete(ctx, url))
	assert.Error(t, s.Delete(ctx, "https://elsewhere.test/x"))
	assert.Zero(t, s.Len())
}
