package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/metrics"
	"github.com/negroni/relay/internal/response"
)

const defaultUploadName = "upload"

// Handler holds the echo and health endpoints.
type Handler struct {
	maxBytes int64
	metrics  metrics.Observer
}

// NewHandler creates a relay Handler enforcing maxBytes per file.
func NewHandler(maxBytes int64, obs metrics.Observer) *Handler {
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &Handler{maxBytes: maxBytes, metrics: obs}
}

// Echo godoc
//
//	@Summary		Echo an uploaded file
//	@Description	Returns the uploaded "file" part verbatim with its declared content type. X-File-Name carries the percent-encoded name and X-File-Size the byte count.
//	@Tags			relay
//	@Accept			mpfd
//	@Produce		octet-stream
//	@Param			file	formData	file	true	"File to relay"
//	@Success		200		{file}		binary
//	@Failure		400		{string}	string
//	@Failure		413		{string}	string
//	@Router			/echo [post]
func (h *Handler) Echo(w http.ResponseWriter, r *http.Request) {
	up, err := ParseUpload(w, r, h.maxBytes)
	if err != nil {
		h.writeUploadError(w, r, "echo", err)
		return
	}

	name := up.Name
	if name == "" {
		name = defaultUploadName
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(up.Data)))
	w.Header().Set("X-File-Name", EncodeURIComponent(name))
	w.Header().Set("X-File-Size", strconv.Itoa(len(up.Data)))
	w.Header().Set("Access-Control-Expose-Headers", "X-File-Name, X-File-Size")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(up.Data)

	h.metrics.RecordRequest("echo", metrics.OutcomeOK)
	h.metrics.RecordRelayed(int64(len(up.Data)))
}

// writeUploadError maps ParseUpload errors to plain-text 4xx responses.
func (h *Handler) writeUploadError(w http.ResponseWriter, r *http.Request, route string, err error) {
	h.metrics.RecordRequest(route, UploadOutcome(err))
	logger.FromContext(r.Context()).Info("upload rejected", "route", route, "error", err)
	WriteUploadError(w, err, h.maxBytes)
}

// UploadOutcome maps a ParseUpload error to a metrics outcome.
func UploadOutcome(err error) string {
	if errors.Is(err, ErrTooLarge) {
		return metrics.OutcomeTooLarge
	}
	return metrics.OutcomeBadRequest
}

// WriteUploadError writes the plain-text response for a ParseUpload error.
func WriteUploadError(w http.ResponseWriter, err error, maxBytes int64) {
	switch {
	case errors.Is(err, ErrTooLarge):
		response.TooLarge(w, UploadErrorMessage(err, maxBytes))
	default:
		response.BadRequest(w, UploadErrorMessage(err, maxBytes))
	}
}

// UploadErrorMessage returns the user-facing text for a ParseUpload error.
func UploadErrorMessage(err error, maxBytes int64) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("File too large (max %d bytes)", maxBytes)
	case errors.Is(err, ErrNotMultipart):
		return "Expected multipart/form-data"
	case errors.Is(err, ErrMissingFile):
		return `Missing "file" in form-data`
	default:
		return "Malformed multipart body"
	}
}

// Health godoc
//
//	@Summary	Health check
//	@Tags		relay
//	@Produce	plain
//	@Success	200	{string}	string	"ok"
//	@Router		/health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	response.Text(w, http.StatusOK, "ok")
}
