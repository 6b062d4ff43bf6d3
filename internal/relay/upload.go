// Package relay implements the echo endpoint that hands an uploaded file back
// to the caller from a host the chat platform trusts.
package relay

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/negroni/relay/internal/domain"
)

// multipartSlack bounds the envelope (boundaries, part headers, small
// fields) that may accompany a file of exactly the ceiling size.
const multipartSlack = 1 << 20

// maxFieldBytes bounds plain form fields such as user_id.
const maxFieldBytes = 4 << 10

var (
	// ErrNotMultipart is returned when the request is not multipart/form-data.
	ErrNotMultipart = errors.New("expected multipart/form-data")
	// ErrMalformed is returned for unparsable multipart bodies.
	ErrMalformed = errors.New("malformed multipart body")
	// ErrMissingFile is returned when no "file" part carries a file.
	ErrMissingFile = errors.New(`missing "file" in form-data`)
	// ErrTooLarge is returned when the file exceeds the size ceiling.
	ErrTooLarge = errors.New("file too large")
)

// Upload is a parsed multipart request: the "file" part plus plain fields.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
	Fields      map[string]string
}

// Asset converts the upload to a domain asset.
func (u *Upload) Asset() domain.Asset {
	return domain.Asset{Name: u.Name, ContentType: u.ContentType, Data: u.Data}
}

// ParseUpload reads the "file" part of a multipart/form-data request,
// rejecting files larger than maxBytes. A file of exactly maxBytes is accepted.
func ParseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*Upload, error) {
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return nil, ErrNotMultipart
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	up := &Upload{Fields: map[string]string{}}
	found := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyReadErr(err)
		}

		name := part.FormName()
		switch {
		case name == "file" && isFilePart(part.Header.Get("Content-Disposition")) && !found:
			data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
			if err != nil {
				_ = part.Close()
				return nil, classifyReadErr(err)
			}
			if int64(len(data)) > maxBytes {
				_ = part.Close()
				return nil, ErrTooLarge
			}
			up.Name = part.FileName()
			up.ContentType = part.Header.Get("Content-Type")
			up.Data = data
			found = true
		case name != "" && !isFilePart(part.Header.Get("Content-Disposition")):
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				_ = part.Close()
				return nil, classifyReadErr(err)
			}
			up.Fields[name] = string(value)
		}
		_ = part.Close()
	}

	if !found {
		return nil, ErrMissingFile
	}
	return up, nil
}

// isFilePart reports whether a part was sent as a file (has a filename
// parameter, possibly empty) rather than a plain string field.
func isFilePart(disposition string) bool {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

// Sniff detects a media type from content, for uploads whose sender
// declared none.
func Sniff(data []byte) string {
	if len(data) == 0 {
		return domain.DefaultContentType
	}
	return mimetype.Detect(data).String()
}

func classifyReadErr(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return ErrTooLarge
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// EncodeURIComponent percent-encodes s the way browsers' encodeURIComponent
// does, so clients can decode X-File-Name with decodeURIComponent.
func EncodeURIComponent(s string) string {
	var b strings.Builder
	const hex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
