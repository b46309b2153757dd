package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
)

// MediaFiles resolves public media names to local files.
type MediaFiles interface {
	Path(name string) (string, error)
}

// MediaHandler serves GET /media/{name}. The WhatsApp Cloud API fetches
// synthesized replies from here.
type MediaHandler struct {
	files MediaFiles
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(files MediaFiles) *MediaHandler {
	return &MediaHandler{files: files}
}

// ServeHTTP writes the named file. Directory listings are never served.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	path, err := h.files.Path(chi.URLParam(r, "name"))
	if err != nil {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Media file not found", requestID)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read media file", requestID)
			return
		}
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Media file not found", requestID)
		return
	}

	http.ServeFile(w, r, path)
}
