package netx

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negroni/relay/internal/domain"
)

func TestMultipartFile(t *testing.T) {
	body, ct, err := MultipartFile(domain.Asset{Name: `we"ird.jpg`, ContentType: "image/jpeg", Data: []byte("jpeg")}, map[string]string{"user_id": "7"})
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	mr := multipart.NewReader(body, params["boundary"])

	form, err := mr.ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, form.Value["user_id"])
	require.Len(t, form.File["file"], 1)
	fh := form.File["file"][0]
	assert.Equal(t, `we"ird.jpg`, fh.Filename)
	assert.Equal(t, "image/jpeg", fh.Header.Get("Content-Type"))
}

func TestMultipartFileDefaults(t *testing.T) {
	body, _, err := MultipartFile(domain.Asset{Data: []byte("x")}, nil)
	require.NoError(t, err)
	s := body.String()
	assert.Contains(t, s, `filename="photo.jpg"`)
	assert.Contains(t, s, "Content-Type: application/octet-stream")
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, TransportError(ctx, "echo", errors.New("aborted")), domain.ErrCancelled)

	err := TransportError(context.Background(), "echo", context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.NotErrorIs(t, err, domain.ErrCancelled)
}

func TestErrorBody(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader("  File too large  \n"))}
	assert.Equal(t, "File too large", ErrorBody(resp))
}
