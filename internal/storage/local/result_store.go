// Package local writes result documents to the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

// Config locates the result document: <Dir>/<Filename>.json.
type Config struct {
	Dir      string
	Filename string
}

// ResultStore persists a batch as one JSON document, replacing any previous one.
type ResultStore struct {
	dir  string
	path string
}

// New validates cfg. The directory is created on first save.
func New(cfg Config) (*ResultStore, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	name := strings.TrimSpace(cfg.Filename)
	if name == "" {
		return nil, fmt.Errorf("output filename is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("output filename %q must not contain a path", name)
	}
	name = strings.TrimSuffix(name, ".json")
	return &ResultStore{
		dir:  cfg.Dir,
		path: filepath.Join(cfg.Dir, name+".json"),
	}, nil
}

// Path is the file SaveResults writes.
func (s *ResultStore) Path() string {
	return s.path
}

// SaveResults writes records through a temp file in the same directory and
// renames it into place, so readers never observe a partial document.
func (s *ResultStore) SaveResults(_ context.Context, records []crawler.Record) (crawler.Location, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return crawler.Location{}, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".jumpit-*.json.tmp")
	if err != nil {
		return crawler.Location{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := crawler.EncodeDocument(tmp, records); err != nil {
		_ = tmp.Close()
		return crawler.Location{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return crawler.Location{}, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return crawler.Location{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return crawler.Location{}, fmt.Errorf("replace %s: %w", s.path, err)
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		abs = s.path
	}
	return crawler.Location{URI: "file://" + filepath.ToSlash(abs)}, nil
}

// ReadResults parses a document previously written by SaveResults.
func ReadResults(path string) ([]crawler.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	records, err := crawler.DecodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
