// Package formfill exposes interactive-form operations over stored
// documents: enumerate a file's fields and produce a filled copy under
// a new id.
package formfill

import (
	"fmt"
	"log/slog"

	"github.com/pdfmark/pdfmark/pkg/pdf"
	"github.com/pdfmark/pdfmark/pkg/storage"
)

// Field is the flat descriptor handed to callers.
type Field struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Value     string     `json:"value"`
	PageIndex int        `json:"pageIndex"`
	Rect      [4]float64 `json:"rect"` // llx, lly, urx, ury in PDF space
	ReadOnly  bool       `json:"readOnly"`
	Required  bool       `json:"required"`
	MaxLen    int        `json:"maxLen,omitempty"`
	Options   []string   `json:"options,omitempty"`
}

// Service reads and fills forms in stored documents.
type Service struct {
	store *storage.Store
	log   *slog.Logger
}

// New creates a service over the document store.
func New(store *storage.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// Fields lists the form fields of a stored document. A document without
// a form yields an empty list.
func (s *Service) Fields(fileID string) ([]Field, error) {
	file, err := s.load(fileID)
	if err != nil {
		return nil, err
	}
	fields, err := file.FormFields()
	if err != nil {
		return nil, fmt.Errorf("read form fields: %w", err)
	}
	return Describe(fields), nil
}

// Describe converts parsed form fields into the flat wire descriptors.
func Describe(fields []pdf.FormField) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, Field{
			Name:      f.Name,
			Type:      f.Type,
			Value:     f.Value,
			PageIndex: f.PageIndex,
			Rect:      [4]float64{f.Rect.LLX, f.Rect.LLY, f.Rect.URX, f.Rect.URY},
			ReadOnly:  f.ReadOnly,
			Required:  f.Required,
			MaxLen:    f.MaxLen,
			Options:   f.Options,
		})
	}
	return out
}

// Fill writes values into the form and stores the result as a new
// document, returning its descriptor and the names that matched no
// fillable field. Unmatched names never fail the fill; the matched
// fields are written regardless. With flatten set the filled copy is no
// longer editable.
func (s *Service) Fill(fileID string, values map[string]string, flatten bool) (storage.FileInfo, []string, error) {
	file, err := s.load(fileID)
	if err != nil {
		return storage.FileInfo{}, nil, err
	}
	filled, failed, err := file.FillForm(values, flatten)
	if err != nil {
		return storage.FileInfo{}, nil, fmt.Errorf("fill form: %w", err)
	}
	info, err := s.store.Write(filled)
	if err != nil {
		return storage.FileInfo{}, nil, err
	}
	if len(failed) > 0 {
		s.log.Warn("some form values matched no field", "source", fileID, "fields", failed)
	}
	s.log.Info("filled form", "source", fileID, "result", info.ID,
		"fields", len(values)-len(failed), "flatten", flatten)
	return info, failed, nil
}

func (s *Service) load(fileID string) (*pdf.File, error) {
	data, err := s.store.Read(fileID)
	if err != nil {
		return nil, err
	}
	file, err := pdf.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", fileID, err)
	}
	return file, nil
}
