package handler_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/api/handler"
	"github.com/meseeks-ai/meseeks/internal/media"
)

func TestMedia_ServesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reply.mp3"), []byte("ID3audio"), 0o644))
	h := handler.NewMediaHandler(media.NewStore(dir, "http://localhost"))

	req, w := makeChiRequest(http.MethodGet, "/media/reply.mp3", nil, map[string]string{"name": "reply.mp3"})
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3audio", w.Body.String())
}

func TestMedia_MissingFile(t *testing.T) {
	t.Parallel()

	h := handler.NewMediaHandler(media.NewStore(t.TempDir(), "http://localhost"))

	req, w := makeChiRequest(http.MethodGet, "/media/nope.mp3", nil, map[string]string{"name": "nope.mp3"})
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMedia_RejectsTraversal(t *testing.T) {
	t.Parallel()

	h := handler.NewMediaHandler(media.NewStore(t.TempDir(), "http://localhost"))

	for _, name := range []string{"../etc/passwd", ".env", ""} {
		req, w := makeChiRequest(http.MethodGet, "/media/x", nil, map[string]string{"name": name})
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code, name)
	}
}
