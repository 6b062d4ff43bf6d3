// Package netx holds the multipart and error plumbing shared by the relay
// and share-handle clients.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/negroni/relay/internal/domain"
)

// maxErrorBody bounds how much of an error response is quoted in errors.
const maxErrorBody = 1 << 10

// MultipartFile encodes asset as the "file" part plus plain fields.
func MultipartFile(asset domain.Asset, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %q: %w", k, err)
		}
	}

	name := asset.Name
	if name == "" {
		name = domain.DefaultAssetName
	}
	contentType := asset.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// TransportError classifies an error from http.Client.Do or a body read:
// cancellation becomes domain.ErrCancelled, everything else (timeouts
// included) domain.ErrNetwork.
func TransportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %s: %v", domain.ErrCancelled, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrNetwork, op, err)
}

// ErrorBody returns a short, trimmed excerpt of a failed response body.
func ErrorBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}
