package blob

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret", "https://api.negroni.work/")

	url, err := s.URL("blob-key", time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://api.negroni.work/blob/"))

	key, err := s.Verify(strings.TrimPrefix(url, "https://api.negroni.work/blob/"))
	require.NoError(t, err)
	assert.Equal(t, "blob-key", key)
}

func TestSignerRejectsExpired(t *testing.T) {
	s := NewSigner("secret", "http://x")
	token, err := s.Sign("k", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignerRejectsForeignSecret(t *testing.T) {
	token, err := NewSigner("one", "http://x").Sign("k", time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = NewSigner("two", "http://x").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSigner("one", "http://x").Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
