package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes and reads files under a single media root. All paths it
// hands out are root-relative with forward slashes.
type Store struct {
	Root string
}

// URLPrefix is the route files are served under.
const URLPrefix = "/private-media/"

// sanitizeFilename strips directory components and anything that could
// confuse the classifier out of an upload's original name.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, `/`))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return name
}

// Write stores data as dir/<name>, renaming on collision so an existing
// file is never overwritten. It returns the root-relative path.
func (s *Store) Write(dir, name string, data []byte) (string, error) {
	name = sanitizeFilename(name)
	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", err
	}
	rel := path.Join(dir, name)
	full := filepath.Join(s.Root, dir, name)
	if _, err := os.Stat(full); err == nil {
		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		name = fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
		rel = path.Join(dir, name)
		full = filepath.Join(s.Root, dir, name)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

// Open opens a previously stored file for reading.
func (s *Store) Open(rel string) (*os.File, error) {
	return os.Open(filepath.Join(s.Root, filepath.FromSlash(rel)))
}

// URLFor maps a stored path to the route it is served from.
func URLFor(rel string) string {
	return URLPrefix + rel
}

// ContentType derives the response content type from the file extension.
func ContentType(rel string) string {
	switch strings.ToLower(path.Ext(rel)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	}
	return "application/octet-stream"
}
