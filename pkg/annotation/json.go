package annotation

import (
	"encoding/json"
	"fmt"
)

// record is the flat wire form shared with the web editor. A single
// discriminated shape is used for all five kinds; payload fields not
// belonging to the kind are omitted.
type record struct {
	ID         string  `json:"id"`
	Type       Kind    `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Page       int     `json:"page"`
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`

	Content    *string `json:"content,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Fill       string  `json:"fill,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Underline  bool    `json:"underline,omitempty"`

	Path        string  `json:"pathData,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`

	ImageData string `json:"imageData,omitempty"`
}

func toRecord(a Annotation) record {
	m := a.Meta()
	r := record{
		ID:         m.ID,
		Type:       a.Kind(),
		X:          m.X,
		Y:          m.Y,
		Width:      m.Width,
		Height:     m.Height,
		Page:       m.Page,
		PageWidth:  m.PageWidth,
		PageHeight: m.PageHeight,
	}
	switch v := a.(type) {
	case *Text:
		content := v.Content
		r.Content = &content
		r.FontFamily = v.FontFamily
		r.FontSize = v.FontSize
		r.Fill = v.Fill
		r.Bold = v.Bold
		r.Underline = v.Underline
	case *Draw:
		r.Path = v.Path
		r.StrokeWidth = v.StrokeWidth
		r.Stroke = v.Stroke
	case *Signature:
		r.ImageData = v.ImageData
	}
	return r
}

func fromRecord(r record) (Annotation, error) {
	common := Common{
		ID:         r.ID,
		Page:       r.Page,
		X:          r.X,
		Y:          r.Y,
		Width:      r.Width,
		Height:     r.Height,
		PageWidth:  r.PageWidth,
		PageHeight: r.PageHeight,
	}
	switch r.Type {
	case KindText:
		content := ""
		if r.Content != nil {
			content = *r.Content
		}
		return &Text{
			Common:     common,
			Content:    content,
			FontFamily: r.FontFamily,
			FontSize:   r.FontSize,
			Fill:       r.Fill,
			Bold:       r.Bold,
			Underline:  r.Underline,
		}, nil
	case KindCheck:
		return &Check{Common: common}, nil
	case KindCross:
		return &Cross{Common: common}, nil
	case KindDraw:
		return &Draw{
			Common:      common,
			Path:        r.Path,
			StrokeWidth: r.StrokeWidth,
			Stroke:      r.Stroke,
		}, nil
	case KindSignature:
		return &Signature{Common: common, ImageData: r.ImageData}, nil
	default:
		return nil, fmt.Errorf("unknown annotation type %q", r.Type)
	}
}

// MarshalSet encodes an annotation set as a JSON array in the flat wire
// form.
func MarshalSet(set []Annotation) ([]byte, error) {
	records := make([]record, len(set))
	for i, a := range set {
		records[i] = toRecord(a)
	}
	return json.Marshal(records)
}

// ParseSet decodes a JSON array in the flat wire form.
func ParseSet(data []byte) ([]Annotation, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse annotation set: %w", err)
	}
	set := make([]Annotation, len(records))
	for i, r := range records {
		a, err := fromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		set[i] = a
	}
	return set, nil
}
