package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"sigs.k8s.io/yaml"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
)

// OpenAPIHandler serves the API description as JSON, stamped with the
// version of the running server.
type OpenAPIHandler struct {
	doc  []byte
	etag string
	err  error
}

// NewOpenAPIHandler converts yamlSpec once. A non-empty version replaces
// info.version so clients see the build they are talking to. Conversion
// errors are reported on every request.
func NewOpenAPIHandler(yamlSpec []byte, version string) *OpenAPIHandler {
	doc, err := renderOpenAPI(yamlSpec, version)
	if err != nil {
		slog.Error("failed to convert OpenAPI document", "error", err)
		return &OpenAPIHandler{err: err}
	}
	sum := sha256.Sum256(doc)
	return &OpenAPIHandler{doc: doc, etag: `"` + hex.EncodeToString(sum[:8]) + `"`}
}

func renderOpenAPI(yamlSpec []byte, version string) ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(yamlSpec, &doc); err != nil {
		return nil, fmt.Errorf("parsing OpenAPI YAML: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parsing OpenAPI YAML: empty document")
	}

	if version != "" {
		info, _ := doc["info"].(map[string]interface{})
		if info == nil {
			info = map[string]interface{}{}
			doc["info"] = info
		}
		info["version"] = version
	}

	return json.Marshal(doc)
}

func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		requestID := middleware.GetRequestID(r.Context())
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI spec", requestID)
		return
	}

	w.Header().Set("ETag", h.etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.doc); err != nil {
		slog.Error("failed to write OpenAPI spec response", "error", err)
	}
}
