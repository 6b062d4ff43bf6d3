package prepared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/response"
	"github.com/negroni/relay/internal/telegram"
)

func prepareRequest(t *testing.T, userID string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if userID != "" {
		require.NoError(t, mw.WriteField("user_id", userID))
	}
	fw, err := mw.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/prepare", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestPrepareHandlerSuccess(t *testing.T) {
	svc, _, _ := newTestService(&fakePreparer{handle: domain.Handle{ID: "abc", ExpiresAt: fixedNow.Add(300 * time.Second)}})
	rec := httptest.NewRecorder()

	NewHandler(svc, 1024, nil).Prepare(rec, prepareRequest(t, "42", []byte("jpeg")))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.OK)
	assert.Equal(t, "abc", env.ID)
	assert.Equal(t, fixedNow.Unix()+300, env.ExpirationDate)
}

func TestPrepareHandlerRejected(t *testing.T) {
	p := &fakePreparer{err: fmt.Errorf("%w: quota", telegram.ErrRejected)}
	svc, _, _ := newTestService(p)
	rec := httptest.NewRecorder()

	NewHandler(svc, 1024, nil).Prepare(rec, prepareRequest(t, "42", []byte("jpeg")))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "quota")
}

func TestPrepareHandlerValidation(t *testing.T) {
	svc, _, _ := newTestService(&fakePreparer{handle: domain.Handle{ID: "abc"}})
	h := NewHandler(svc, 4, nil)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"missing user", prepareRequest(t, "", []byte("x")), http.StatusBadRequest},
		{"bad user", prepareRequest(t, "alice", []byte("x")), http.StatusBadRequest},
		{"too large", prepareRequest(t, "42", []byte("12345")), http.StatusRequestEntityTooLarge},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/prepare", bytes.NewBufferString("{}")), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Prepare(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).OK)
		})
	}
}

func TestPrepareHandlerNotConfigured(t *testing.T) {
	svc, _, _ := newTestService(nil)
	rec := httptest.NewRecorder()

	NewHandler(svc, 1024, nil).Prepare(rec, prepareRequest(t, "42", []byte("x")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPrepareHandlerSniffsUndeclaredType(t *testing.T) {
	p := &fakePreparer{handle: domain.Handle{ID: "abc"}}
	svc, _, _ := newTestService(p)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rec := httptest.NewRecorder()

	// CreateFormFile declares application/octet-stream.
	NewHandler(svc, 1024, nil).Prepare(rec, prepareRequest(t, "42", png))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", p.last().Asset.ContentType)
}
