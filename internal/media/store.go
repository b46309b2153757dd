// Package media keeps downloaded and synthesized audio files on local disk
// and builds the public links under which /media serves them.
package media

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for file names that would escape the media directory.
var ErrInvalidName = errors.New("media: invalid file name")

// Store writes files into one directory.
type Store struct {
	dir       string
	publicURL string
}

// NewStore creates a Store rooted at dir. Links are built as
// publicURL + "/media/" + name.
func NewStore(dir, publicURL string) *Store {
	return &Store{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

// Dir returns the media directory.
func (s *Store) Dir() string { return s.dir }

// Save writes data to name inside the directory, creating it if needed,
// and returns the file path.
func (s *Store) Save(name string, data []byte) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing media file: %w", err)
	}
	return path, nil
}

// Path returns the location of name inside the directory. Names with a
// separator or a leading dot are rejected.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// URL returns the public link for name.
func (s *Store) URL(name string) string {
	return s.publicURL + "/media/" + url.PathEscape(name)
}

// ExtensionFor maps a MIME type to a file extension: "audio/ogg; codecs=opus"
// becomes "ogg". Unknown or empty types yield "bin".
func ExtensionFor(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(mt), "/")
	if !ok || sub == "" {
		return "bin"
	}
	switch sub {
	case "mpeg":
		return "mp3"
	case "x-wav", "wave":
		return "wav"
	}
	return sub
}
