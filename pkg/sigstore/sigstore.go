// Package sigstore persists the user's saved signatures: a bounded,
// newest-first list stored as one JSON array with no migration
// versioning.
package sigstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// MaxSignatures bounds the library; adding beyond it evicts the oldest.
const MaxSignatures = 10

// Saved is one stored signature.
type Saved struct {
	ID        string    `json:"id"`
	ImageData string    `json:"imageData"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

// Library reads and writes the signature list at a fixed path. All
// operations load, mutate and rewrite the whole file; the list is tiny
// by construction.
type Library struct {
	path string
}

// New creates a library backed by the given file path.
func New(path string) *Library {
	return &Library{path: path}
}

// List returns the saved signatures, newest first. A missing file is an
// empty library, not an error.
func (l *Library) List() ([]Saved, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read signature library: %w", err)
	}
	var out []Saved
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse signature library: %w", err)
	}
	return out, nil
}

// Add stores a signature at the front of the list, evicting beyond the
// bound, and returns the record.
func (l *Library) Add(imageData string, width, height float64) (Saved, error) {
	list, err := l.List()
	if err != nil {
		return Saved{}, err
	}
	rec := Saved{
		ID:        fmt.Sprintf("sig-%d", time.Now().UnixNano()),
		ImageData: imageData,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now().UTC(),
	}
	list = append([]Saved{rec}, list...)
	if len(list) > MaxSignatures {
		list = list[:MaxSignatures]
	}
	if err := l.write(list); err != nil {
		return Saved{}, err
	}
	return rec, nil
}

// Remove deletes the signature with the given id. Removing an unknown
// id is a no-op.
func (l *Library) Remove(id string) error {
	list, err := l.List()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, s := range list {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return l.write(kept)
}

func (l *Library) write(list []Saved) error {
	if list == nil {
		list = []Saved{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode signature library: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("write signature library: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write signature library: %w", err)
	}
	return nil
}
