package pdf

import (
	"fmt"
	"sort"
)

// Field flag bits from the AcroForm dictionary definitions.
const (
	flagReadOnly   = 1 << 0
	flagRequired   = 1 << 1
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
)

// FormField describes one terminal field of an interactive form.
type FormField struct {
	Name      string
	Type      string // text, checkbox, radio, choice, signature, button
	Value     string
	Rect      Rect
	PageIndex int // zero-based, -1 when the widget is not on any page
	ReadOnly  bool
	Required  bool
	MaxLen    int
	Options   []string

	ref Reference
}

// resolved follows references, treating unresolvable objects as Null.
// Form traversal tolerates broken links instead of aborting the walk.
func (f *File) resolved(obj Object) Object {
	out, err := f.Resolve(obj)
	if err != nil {
		return Null{}
	}
	return out
}

// FormFields walks the document's AcroForm tree and returns every
// terminal field with its fully qualified name. Documents without a
// form yield an empty slice.
func (f *File) FormFields() ([]FormField, error) {
	acro := f.acroFormDict()
	if acro == nil {
		return nil, nil
	}
	fieldsArr, ok := f.resolved(acro.Get("Fields")).(Array)
	if !ok {
		return nil, nil
	}

	pageOf := f.widgetPageIndex()
	var out []FormField
	for _, item := range fieldsArr {
		ref, _ := item.(Reference)
		f.walkField(ref, "", inherited{}, pageOf, &out)
	}
	return out, nil
}

// inherited carries attributes that child fields take from their parent
// when they do not define their own.
type inherited struct {
	fieldType Name
	value     Object
	flags     int
}

func (f *File) walkField(ref Reference, prefix string, inh inherited, pageOf map[Reference]int, out *[]FormField) {
	dict, ok := f.resolved(ref).(Dictionary)
	if !ok {
		return
	}

	name := prefix
	if s, ok := f.resolved(dict.Get("T")).(String); ok {
		if name != "" {
			name += "."
		}
		name += DecodeTextString(s.Value)
	}
	if ft, ok := f.resolved(dict.Get("FT")).(Name); ok {
		inh.fieldType = ft
	}
	if v := dict.Get("V"); v != nil {
		inh.value = f.resolved(v)
	}
	if ff, ok := f.resolved(dict.Get("Ff")).(Integer); ok {
		inh.flags = int(ff)
	}

	kids, hasKids := f.resolved(dict.Get("Kids")).(Array)
	if hasKids && len(kids) > 0 && !kidsAreWidgetsOnly(f, kids) {
		for _, kid := range kids {
			kidRef, _ := kid.(Reference)
			f.walkField(kidRef, name, inh, pageOf, out)
		}
		return
	}

	if inh.fieldType == "" {
		return
	}
	field := FormField{
		Name:      name,
		Type:      fieldTypeName(inh.fieldType, inh.flags),
		Value:     f.fieldValueString(inh.value),
		ReadOnly:  inh.flags&flagReadOnly != 0,
		Required:  inh.flags&flagRequired != 0,
		PageIndex: -1,
		ref:       ref,
	}
	if ml, ok := f.resolved(dict.Get("MaxLen")).(Integer); ok {
		field.MaxLen = int(ml)
	}
	if opts, ok := f.resolved(dict.Get("Opt")).(Array); ok {
		for _, o := range opts {
			switch v := f.resolved(o).(type) {
			case String:
				field.Options = append(field.Options, DecodeTextString(v.Value))
			case Array:
				// [export display] pair, keep the export value
				if len(v) > 0 {
					if s, ok := f.resolved(v[0]).(String); ok {
						field.Options = append(field.Options, DecodeTextString(s.Value))
					}
				}
			}
		}
	}

	// widget geometry lives either on the field itself or on its kids
	widgetRef, widget := ref, dict
	if hasKids && len(kids) > 0 {
		if kr, ok := kids[0].(Reference); ok {
			if kd, ok := f.resolved(kr).(Dictionary); ok {
				widgetRef, widget = kr, kd
			}
		}
	}
	if arr, ok := f.resolved(widget.Get("Rect")).(Array); ok {
		if r, ok := resolvedRect(f, arr); ok {
			field.Rect = r
		}
	}
	if idx, ok := pageOf[widgetRef]; ok {
		field.PageIndex = idx
	} else if idx, ok := pageOf[ref]; ok {
		field.PageIndex = idx
	}

	*out = append(*out, field)
}

func (f *File) fieldValueString(v Object) string {
	switch val := v.(type) {
	case String:
		return DecodeTextString(val.Value)
	case Name:
		return string(val)
	case Array:
		// multi-select choice, report the first selection
		if len(val) > 0 {
			if s, ok := f.resolved(val[0]).(String); ok {
				return DecodeTextString(s.Value)
			}
		}
	}
	return ""
}

// kidsAreWidgetsOnly reports whether every kid is a widget annotation
// without its own partial name, meaning the parent is the terminal
// field and the kids only position it on pages.
func kidsAreWidgetsOnly(f *File, kids Array) bool {
	for _, kid := range kids {
		d, ok := f.resolved(kid).(Dictionary)
		if !ok {
			return false
		}
		if d.Get("T") != nil {
			return false
		}
	}
	return true
}

func fieldTypeName(ft Name, flags int) string {
	switch ft {
	case "Tx":
		return "text"
	case "Ch":
		return "choice"
	case "Sig":
		return "signature"
	case "Btn":
		switch {
		case flags&flagPushButton != 0:
			return "button"
		case flags&flagRadio != 0:
			return "radio"
		default:
			return "checkbox"
		}
	}
	return string(ft)
}

// widgetPageIndex maps every annotation reference to the zero-based
// index of the page whose /Annots array carries it.
func (f *File) widgetPageIndex() map[Reference]int {
	out := make(map[Reference]int)
	for i, page := range f.pages {
		annots, ok := f.resolved(page.Dict.Get("Annots")).(Array)
		if !ok {
			continue
		}
		for _, a := range annots {
			if ref, ok := a.(Reference); ok {
				out[ref] = i
			}
		}
	}
	return out
}

func (f *File) acroFormDict() Dictionary {
	if f.catalog == nil {
		return nil
	}
	acro, ok := f.resolved(f.catalog.Get("AcroForm")).(Dictionary)
	if !ok {
		return nil
	}
	return acro
}

// FillForm writes the given values into matching fields through an
// incremental update and returns the new document bytes. Names that
// match no field, or whose field cannot take a value, are collected
// into the second result and skipped; every matched field is still
// filled. NeedAppearances is set so viewers regenerate widget
// appearances for the new values. With flatten set, every field
// additionally becomes read only.
func (f *File) FillForm(values map[string]string, flatten bool) ([]byte, []string, error) {
	fields, err := f.FormFields()
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]FormField, len(fields))
	for _, fld := range fields {
		byName[fld.Name] = fld
	}
	var failed []string
	for name := range values {
		if _, ok := byName[name]; !ok {
			failed = append(failed, name)
		}
	}

	u := NewUpdater(f)
	for _, fld := range fields {
		value, requested := values[fld.Name]
		if !requested && !flatten {
			continue
		}
		dict, ok := f.resolved(fld.ref).(Dictionary)
		if !ok {
			if requested {
				failed = append(failed, fld.Name)
			}
			continue
		}
		updated := dict.Clone()
		if requested {
			if err := f.setFieldValue(updated, fld, value); err != nil {
				failed = append(failed, fld.Name)
				if !flatten {
					continue
				}
			}
		}
		if flatten {
			flags := 0
			if ff, ok := f.resolved(updated.Get("Ff")).(Integer); ok {
				flags = int(ff)
			}
			updated["Ff"] = Integer(flags | flagReadOnly)
		}
		u.Put(fld.ref, updated)
	}

	if err := f.setNeedAppearances(u); err != nil {
		return nil, nil, err
	}
	out, err := u.Bytes()
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(failed)
	return out, failed, nil
}

func (f *File) setFieldValue(dict Dictionary, fld FormField, value string) error {
	switch fld.Type {
	case "checkbox", "radio":
		state := Name("Off")
		if value != "" && value != "Off" && value != "false" {
			state = f.onState(dict, value)
		}
		dict["V"] = state
		dict["AS"] = state
	case "text", "choice":
		dict["V"] = String{Value: EncodeTextString(value)}
	case "signature":
		return fmt.Errorf("form field %q: signature fields cannot be filled with text", fld.Name)
	default:
		return fmt.Errorf("form field %q: unsupported type %s", fld.Name, fld.Type)
	}
	return nil
}

// onState finds the widget's checked appearance name. Checkbox on
// states are rarely literally "On", so the /AP /N dictionary is the
// source of truth.
func (f *File) onState(dict Dictionary, requested string) Name {
	ap, ok := f.resolved(dict.Get("AP")).(Dictionary)
	if !ok {
		return Name(requested)
	}
	normal, ok := f.resolved(ap.Get("N")).(Dictionary)
	if !ok {
		return Name(requested)
	}
	if normal.Get(requested) != nil {
		return Name(requested)
	}
	for key := range normal {
		if key != "Off" {
			return key
		}
	}
	return Name(requested)
}

func (f *File) setNeedAppearances(u *Updater) error {
	raw := f.catalog.Get("AcroForm")
	switch acro := raw.(type) {
	case Reference:
		dict, ok := f.resolved(acro).(Dictionary)
		if !ok {
			return fmt.Errorf("malformed AcroForm dictionary")
		}
		updated := dict.Clone()
		updated["NeedAppearances"] = Boolean(true)
		u.Put(acro, updated)
	case Dictionary:
		ref, ok := f.trailer.Get("Root").(Reference)
		if !ok {
			return fmt.Errorf("trailer Root is not a reference")
		}
		catalog := f.catalog.Clone()
		form := acro.Clone()
		form["NeedAppearances"] = Boolean(true)
		catalog["AcroForm"] = form
		u.Put(ref, catalog)
	default:
		return fmt.Errorf("document has no interactive form")
	}
	return nil
}

// resolvedRect is rectFromArray with indirect elements resolved
// through the file.
func resolvedRect(f *File, arr Array) (Rect, bool) {
	if len(arr) != 4 {
		return Rect{}, false
	}
	var vals [4]float64
	for i, el := range arr {
		switch v := f.resolved(el).(type) {
		case Integer:
			vals[i] = float64(v)
		case Real:
			vals[i] = float64(v)
		default:
			return Rect{}, false
		}
	}
	r := Rect{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r, true
}
