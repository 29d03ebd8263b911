// Package storage keeps uploaded documents on local disk. Uploads are
// validated before anything is written: only PDF and Word documents are
// accepted, legacy .doc is refused outright and .docx is converted to
// PDF on the way in.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadSize caps uploads at 50 MB.
const MaxUploadSize = 50 << 20

var (
	// ErrUnsupportedType rejects files outside the pdf/doc/docx
	// allow-list. Raised before any byte reaches disk.
	ErrUnsupportedType = errors.New("unsupported file type: only PDF and Word documents are accepted")

	// ErrLegacyDoc rejects the binary .doc format, which has no
	// conversion path here.
	ErrLegacyDoc = errors.New("legacy .doc format is not supported: save the file as .docx and upload again")

	// ErrTooLarge rejects uploads over MaxUploadSize.
	ErrTooLarge = errors.New("file exceeds the 50 MB upload limit")

	// ErrNotFound reports an unknown file id.
	ErrNotFound = errors.New("file not found")
)

// Converter turns a .docx document into PDF bytes. Wired in from
// configuration; without one, .docx uploads are refused.
type Converter interface {
	Convert(ctx context.Context, docx []byte) ([]byte, error)
}

// FileInfo describes a stored document.
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Store is a flat-directory document store with uuid file names.
type Store struct {
	dir       string
	converter Converter
	log       *slog.Logger
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string, converter Converter, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, converter: converter, log: log}, nil
}

// Save validates and stores one upload, returning its descriptor. The
// type check happens on the declared name before any read or write, so
// a rejected upload leaves no trace.
func (s *Store) Save(ctx context.Context, name string, r io.Reader) (FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf", ".docx":
	case ".doc":
		return FileInfo{}, ErrLegacyDoc
	default:
		return FileInfo{}, ErrUnsupportedType
	}

	data, err := readCapped(r)
	if err != nil {
		return FileInfo{}, err
	}

	if ext == ".docx" {
		if s.converter == nil {
			return FileInfo{}, fmt.Errorf("%w: no converter configured", ErrUnsupportedType)
		}
		converted, err := s.converter.Convert(ctx, data)
		if err != nil {
			return FileInfo{}, fmt.Errorf("convert %s: %w", name, err)
		}
		data = converted
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id+".pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("store upload: %w", err)
	}
	s.log.Info("stored upload", "id", id, "name", name, "bytes", len(data))
	return FileInfo{ID: id, Name: name, Size: int64(len(data))}, nil
}

func readCapped(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n > MaxUploadSize {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}

// Read returns the stored document bytes for an id.
func (s *Store) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// Write stores derived bytes (a filled or exported document) under a
// fresh id.
func (s *Store) Write(data []byte) (FileInfo, error) {
	id := uuid.NewString()
	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("store document: %w", err)
	}
	return FileInfo{ID: id, Size: int64(len(data))}, nil
}

// Delete removes every stored variant of the id. Unknown ids are
// no-ops.
func (s *Store) Delete(id string) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete document: %w", err)
		}
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".pdf")
}
