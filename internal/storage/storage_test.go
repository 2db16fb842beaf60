package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_PutAndFetch(t *testing.T) {
	d, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	key, err := d.Put("uploads/schedule.pdf", []byte("%PDF-1.7 fake"))
	require.NoError(t, err)

	data, err := d.Fetch(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 fake"), data)
}

func TestDirStore_FetchMissing(t *testing.T) {
	d, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = d.Fetch(context.Background(), "nope.pdf")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDirStore_RejectsEscapingKeys(t *testing.T) {
	d, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = d.Fetch(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestHTTPStore_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/docs/a.pdf":
			w.Write([]byte("pdf bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTPStore(srv.URL, 0)

	data, err := h.Fetch(context.Background(), "docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	_, err = h.Fetch(context.Background(), "docs/missing.pdf")
	assert.True(t, errors.Is(err, ErrNotFound))
}
