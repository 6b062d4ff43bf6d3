package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negroni/relay/internal/storage"
)

func newBlobRouter(t *testing.T) (*Signer, storage.Storage, http.Handler) {
	t.Helper()
	signer := NewSigner("secret", "http://relay.test")
	store := storage.NewMemoryStorage(8, time.Minute)
	r := chi.NewRouter()
	r.Get("/blob/{token}", NewHandler(signer, store).Get)
	return signer, store, r
}

func TestGetServesStoredBlob(t *testing.T) {
	signer, store, r := newBlobRouter(t)
	require.NoError(t, store.Upload(context.Background(), "k", strings.NewReader("png!"), 4, "image/png"))
	token, err := signer.Sign("k", time.Now().Add(time.Minute))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blob/"+token, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "png!", rec.Body.String())
}

func TestGetUnknownOrInvalid(t *testing.T) {
	signer, _, r := newBlobRouter(t)
	token, err := signer.Sign("gone", time.Now().Add(time.Minute))
	require.NoError(t, err)

	for _, path := range []string{"/blob/" + token, "/blob/garbage"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
