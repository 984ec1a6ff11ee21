package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "articles/1/page.html", "text/html", bytes.NewReader([]byte("content")))
	require.NoError(t, err)
	require.Equal(t, "memory://articles/1/page.html", uri)

	obj, ok := store.Object("articles/1/page.html")
	require.True(t, ok)
	require.Equal(t, "text/html", obj.ContentType)
	obj.Data[0] = 'C'

	again, _ := store.Object("articles/1/page.html")
	require.Equal(t, "content", string(again.Data))
	require.Equal(t, 1, store.Len())
}

func TestBlobStorePutObjectReadError(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "x", "text/html", errReader{})
	require.Error(t, err)
	require.Zero(t, store.Len())
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }
