// Package handleclient acquires prepared-message handles from the
// share-handle provider.
package handleclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/netx"
)

const maxPayload = 64 << 10

type payload struct {
	OK             bool   `json:"ok"`
	ID             string `json:"id"`
	ExpirationDate int64  `json:"expiration_date"`
	Error          string `json:"error"`
}

// Client posts relayed assets to the provider endpoint.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the provider endpoint at url (the full /prepare URL).
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, http: httpClient}
}

// Prepare asks the provider for a handle delivering asset to userID.
func (c *Client) Prepare(ctx context.Context, asset domain.Asset, userID string) (domain.Handle, error) {
	body, contentType, err := netx.MultipartFile(asset, map[string]string{"user_id": userID})
	if err != nil {
		return domain.Handle{}, fmt.Errorf("encode prepare: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return domain.Handle{}, fmt.Errorf("build prepare request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Handle{}, netx.TransportError(ctx, "prepare", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return domain.Handle{}, netx.TransportError(ctx, "read prepare body", err)
	}

	var p payload
	decodeErr := json.Unmarshal(raw, &p)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := resp.Status
		if decodeErr == nil && p.Error != "" {
			msg = fmt.Sprintf("%s: %s", resp.Status, p.Error)
		}
		return domain.Handle{}, fmt.Errorf("%w: prepare failed: %s", domain.ErrNetwork, msg)
	}
	if decodeErr != nil {
		return domain.Handle{}, fmt.Errorf("%w: decode prepare response: %v", domain.ErrProtocol, decodeErr)
	}
	if !p.OK {
		msg := p.Error
		if msg == "" {
			msg = "unknown error"
		}
		return domain.Handle{}, fmt.Errorf("%w: %s", domain.ErrProviderRejected, msg)
	}
	if p.ID == "" {
		return domain.Handle{}, fmt.Errorf("%w: prepare response has no id", domain.ErrProtocol)
	}

	h := domain.Handle{ID: p.ID}
	if p.ExpirationDate > 0 {
		h.ExpiresAt = time.Unix(p.ExpirationDate, 0)
	}
	return h, nil
}
