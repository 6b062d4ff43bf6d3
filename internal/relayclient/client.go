// Package relayclient sends a picked asset through the relay's /echo endpoint.
package relayclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/netx"
)

// Client talks to a relay service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the relay rooted at baseURL. A nil httpClient
// uses http.DefaultClient; timeouts are left to the caller's context.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Echo uploads src and returns the relayed copy.
func (c *Client) Echo(ctx context.Context, src domain.Asset) (domain.Asset, error) {
	body, contentType, err := netx.MultipartFile(src, nil)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/echo", body)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("build echo request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Asset{}, netx.TransportError(ctx, "echo", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.Asset{}, fmt.Errorf("%w: %s", domain.ErrValidation, orStatus(netx.ErrorBody(resp), resp))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.Asset{}, fmt.Errorf("%w: echo failed: %s", domain.ErrNetwork, orStatus(netx.ErrorBody(resp), resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Asset{}, netx.TransportError(ctx, "read echo body", err)
	}

	out := domain.Asset{
		Name:        src.Name,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if out.Name == "" {
		out.Name = domain.DefaultAssetName
	}
	if out.ContentType == "" {
		out.ContentType = src.ContentType
	}
	if out.ContentType == "" {
		out.ContentType = domain.DefaultContentType
	}
	return out, nil
}

func orStatus(msg string, resp *http.Response) string {
	if msg != "" {
		return msg
	}
	return resp.Status
}
