package prepared

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/negroni/relay/internal/domain"
	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/metrics"
	"github.com/negroni/relay/internal/relay"
	"github.com/negroni/relay/internal/response"
	"github.com/negroni/relay/internal/telegram"
)

// Handler holds the HTTP handler for the prepare endpoint.
type Handler struct {
	svc      *Service
	maxBytes int64
	metrics  metrics.Observer
}

// NewHandler creates a new prepare Handler.
func NewHandler(svc *Service, maxBytes int64, obs metrics.Observer) *Handler {
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &Handler{svc: svc, maxBytes: maxBytes, metrics: obs}
}

// Prepare godoc
//
//	@Summary		Prepare a shareable message
//	@Description	Publishes the uploaded file and saves a Telegram prepared inline message for user_id. Provider rejections are reported with ok=false and HTTP 200.
//	@Tags			prepare
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Relayed file"
//	@Param			user_id	formData	int		true	"Telegram user id"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/prepare [post]
func (h *Handler) Prepare(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	up, err := relay.ParseUpload(w, r, h.maxBytes)
	if err != nil {
		h.metrics.RecordRequest("prepare", relay.UploadOutcome(err))
		status := http.StatusBadRequest
		if errors.Is(err, relay.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		response.Fail(w, status, relay.UploadErrorMessage(err, h.maxBytes))
		return
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(up.Fields["user_id"]), 10, 64)
	if err != nil || userID <= 0 {
		h.metrics.RecordRequest("prepare", metrics.OutcomeBadRequest)
		response.Fail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	asset := up.Asset()
	if asset.ContentType == "" || asset.ContentType == domain.DefaultContentType {
		asset.ContentType = relay.Sniff(asset.Data)
	}

	handle, err := h.svc.Prepare(r.Context(), userID, asset)
	switch {
	case errors.Is(err, ErrNotConfigured):
		h.metrics.RecordRequest("prepare", metrics.OutcomeError)
		response.Fail(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, telegram.ErrRejected):
		h.metrics.RecordRequest("prepare", metrics.OutcomeError)
		log.Warn("prepare rejected", "user_id", userID, "error", err)
		response.JSON(w, http.StatusOK, response.Envelope{OK: false, Error: err.Error()})
		return
	case err != nil:
		h.metrics.RecordRequest("prepare", metrics.OutcomeError)
		log.Error("prepare failed", "user_id", userID, "error", err)
		response.Fail(w, http.StatusInternalServerError, "prepare failed")
		return
	}

	h.metrics.RecordRequest("prepare", metrics.OutcomeOK)
	response.Prepared(w, handle.ID, handle.ExpiresAt.Unix())
}
