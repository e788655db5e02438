package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ppiankov/cultura/internal/imagedata"
)

// Media stores uploaded images on disk next to the catalog
type Media struct {
	dir string
}

// NewMedia returns a media store rooted at dir
func NewMedia(dir string) *Media {
	return &Media{dir: dir}
}

// Save writes the decoded image under kind (items, reports) and returns its
// path relative to the media root.
func (m *Media) Save(kind string, p *imagedata.Payload) (string, error) {
	dir := filepath.Join(m.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}
	name := uuid.NewString() + "." + p.Extension()
	if err := os.WriteFile(filepath.Join(dir, name), p.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return filepath.ToSlash(filepath.Join(kind, name)), nil
}

// Path resolves a relative media path to a file path
func (m *Media) Path(rel string) string {
	return filepath.Join(m.dir, filepath.FromSlash(rel))
}
