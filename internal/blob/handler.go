package blob

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/negroni/relay/internal/logger"
	"github.com/negroni/relay/internal/response"
	"github.com/negroni/relay/internal/storage"
)

// Handler serves stored blobs behind signed tokens.
type Handler struct {
	signer *Signer
	store  storage.Storage
}

// NewHandler creates a new blob Handler.
func NewHandler(signer *Signer, store storage.Storage) *Handler {
	return &Handler{signer: signer, store: store}
}

// Get godoc
//
//	@Summary		Fetch a prepared blob
//	@Description	Streams the media behind a prepared message. Tokens expire together with the message.
//	@Tags			blob
//	@Produce		octet-stream
//	@Param			token	path		string	true	"Signed blob token"
//	@Success		200		{file}		binary
//	@Failure		404		{string}	string
//	@Router			/blob/{token} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		response.NotFound(w, r)
		return
	}

	obj, err := h.store.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFound(w, r)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("open blob failed", "key", key, "error", err)
		response.InternalError(w)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}
