// Package blob mints and serves the short-lived URLs Telegram fetches
// prepared media from.
package blob

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tampered, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired blob token")

// Signer issues HS256 tokens that name a storage key and expire with the
// prepared message they back.
type Signer struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewSigner creates a Signer; baseURL is the public origin of this service.
func NewSigner(secret, baseURL string) *Signer {
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// URL returns the public URL for key, valid until expiresAt.
func (s *Signer) URL(key string, expiresAt time.Time) (string, error) {
	token, err := s.Sign(key, expiresAt)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/blob/" + token, nil
}

// Sign creates a token for key.
func (s *Signer) Sign(key string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign blob token: %w", err)
	}
	return token, nil
}

// Verify returns the storage key carried by a valid token.
func (s *Signer) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
