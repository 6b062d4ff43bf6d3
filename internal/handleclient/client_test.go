package handleclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negroni/relay/internal/domain"
)

func providerServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

var asset = domain.Asset{Name: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}

func TestPrepareSuccess(t *testing.T) {
	var gotUser, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.FormValue("user_id")
		_, fh, err := r.FormFile("file")
		if err == nil {
			gotName = fh.Filename
		}
		_, _ = io.WriteString(w, `{"ok":true,"id":"abc","expiration_date":1700000300}`)
	}))
	defer srv.Close()

	h, err := New(srv.URL+"/prepare", srv.Client()).Prepare(context.Background(), asset, "42")
	require.NoError(t, err)
	assert.Equal(t, "abc", h.ID)
	assert.Equal(t, time.Unix(1700000300, 0), h.ExpiresAt)
	assert.Equal(t, "42", gotUser)
	assert.Equal(t, "photo.jpg", gotName)
}

func TestPrepareWithoutExpiry(t *testing.T) {
	srv := providerServer(t, http.StatusOK, `{"ok":true,"id":"abc"}`)

	h, err := New(srv.URL, srv.Client()).Prepare(context.Background(), asset, "42")
	require.NoError(t, err)
	assert.True(t, h.ExpiresAt.IsZero())
}

func TestPrepareFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     error
		contains string
	}{
		{"provider rejected", http.StatusOK, `{"ok":false,"error":"quota"}`, domain.ErrProviderRejected, "quota"},
		{"rejected without text", http.StatusOK, `{"ok":false}`, domain.ErrProviderRejected, "unknown error"},
		{"missing id", http.StatusOK, `{"ok":true}`, domain.ErrProtocol, "no id"},
		{"malformed json", http.StatusOK, `<html>`, domain.ErrProtocol, "decode"},
		{"server error with payload", http.StatusInternalServerError, `{"ok":false,"error":"boom"}`, domain.ErrNetwork, "boom"},
		{"bad gateway", http.StatusBadGateway, `upstream down`, domain.ErrNetwork, "502"},
		{"too large", http.StatusRequestEntityTooLarge, `{"ok":false,"error":"File too large (max 1 bytes)"}`, domain.ErrNetwork, "File too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := providerServer(t, tt.status, tt.body)

			_, err := New(srv.URL, srv.Client()).Prepare(context.Background(), asset, "42")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestPrepareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := providerServer(t, http.StatusOK, `{"ok":true,"id":"abc"}`)
	_, err := New(srv.URL, srv.Client()).Prepare(ctx, asset, "42")
	assert.True(t, domain.IsCancelled(err))
}
