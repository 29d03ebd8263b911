package annotation

// Store is the exclusive owner of the canonical annotation list, wrapped
// in a linear snapshot history. Every mutating operation pushes the
// pre-mutation set onto the past and clears the redo stack; operations on
// unknown ids are no-ops and leave the history untouched.
//
// The store performs no geometry validation; the editor surface is the
// only caller and validates before it mutates.
type Store struct {
	present []Annotation
	past    [][]Annotation
	future  [][]Annotation
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Change pairs an annotation id with the patch to merge into it.
type Change struct {
	ID    string
	Patch Patch
}

func cloneSet(set []Annotation) []Annotation {
	out := make([]Annotation, len(set))
	for i, a := range set {
		out[i] = a.Clone()
	}
	return out
}

func (s *Store) checkpoint() {
	s.past = append(s.past, cloneSet(s.present))
	s.future = nil
}

func (s *Store) find(id string) (int, Annotation) {
	for i, a := range s.present {
		if a.Meta().ID == id {
			return i, a
		}
	}
	return -1, nil
}

// Add creates and appends a new annotation of the given kind with
// type-dependent default geometry and payload, then merges the optional
// overrides. The created record is returned as a copy.
func (s *Store) Add(kind Kind, x, y float64, page int, pageW, pageH float64, overrides ...Patch) Annotation {
	common := Common{
		ID:         newID(),
		Page:       page,
		X:          x,
		Y:          y,
		PageWidth:  pageW,
		PageHeight: pageH,
	}

	var a Annotation
	switch kind {
	case KindText:
		common.Width, common.Height = 150, 30
		a = &Text{
			Common:     common,
			FontFamily: "Helvetica",
			FontSize:   16,
			Fill:       "#000000",
		}
	case KindCheck:
		common.Width, common.Height = 24, 24
		a = &Check{Common: common}
	case KindCross:
		common.Width, common.Height = 24, 24
		a = &Cross{Common: common}
	case KindDraw:
		// geometry filled in after stroke completion
		a = &Draw{Common: common, StrokeWidth: 2, Stroke: "#000000"}
	case KindSignature:
		// geometry filled in after image decode
		a = &Signature{Common: common}
	default:
		return nil
	}

	s.checkpoint()
	for _, p := range overrides {
		p.applyTo(a)
	}
	s.present = append(s.present, a)
	return a.Clone()
}

// Update merges a patch into the annotation with the given id. Unknown
// ids are a no-op: the set is unchanged and no history entry is created.
func (s *Store) Update(id string, p Patch) bool {
	i, _ := s.find(id)
	if i < 0 {
		return false
	}
	s.checkpoint()
	p.applyTo(s.present[i])
	return true
}

// UpdateMany applies a batch of patches atomically as a single history
// step, so a multi-select drag undoes in one operation. Unmatched ids are
// skipped. If nothing matches, no history entry is created.
func (s *Store) UpdateMany(changes []Change) int {
	var matched []int
	for _, ch := range changes {
		if i, _ := s.find(ch.ID); i >= 0 {
			matched = append(matched, i)
		} else {
			matched = append(matched, -1)
		}
	}

	any := false
	for _, i := range matched {
		if i >= 0 {
			any = true
			break
		}
	}
	if !any {
		return 0
	}

	s.checkpoint()
	applied := 0
	for j, ch := range changes {
		if matched[j] >= 0 {
			ch.Patch.applyTo(s.present[matched[j]])
			applied++
		}
	}
	return applied
}

// Remove deletes the annotation with the given id. Unknown ids are a
// no-op with no history entry.
func (s *Store) Remove(id string) bool {
	i, _ := s.find(id)
	if i < 0 {
		return false
	}
	s.checkpoint()
	s.present = append(s.present[:i], s.present[i+1:]...)
	return true
}

// ByID returns a copy of the annotation with the given id.
func (s *Store) ByID(id string) (Annotation, bool) {
	_, a := s.find(id)
	if a == nil {
		return nil, false
	}
	return a.Clone(), true
}

// ByPage returns copies of all annotations on the given 1-based page, in
// insertion order.
func (s *Store) ByPage(page int) []Annotation {
	var out []Annotation
	for _, a := range s.present {
		if a.Meta().Page == page {
			out = append(out, a.Clone())
		}
	}
	return out
}

// All returns a copy of the current set in insertion order.
func (s *Store) All() []Annotation {
	return cloneSet(s.present)
}

// Len returns the number of annotations in the current set.
func (s *Store) Len() int { return len(s.present) }

// Undo moves the last past snapshot into the present. It returns false
// when there is nothing to undo.
func (s *Store) Undo() bool {
	if len(s.past) == 0 {
		return false
	}
	s.future = append([][]Annotation{cloneSet(s.present)}, s.future...)
	s.present = s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	return true
}

// Redo is the mirror of Undo.
func (s *Store) Redo() bool {
	if len(s.future) == 0 {
		return false
	}
	s.past = append(s.past, cloneSet(s.present))
	s.present = s.future[0]
	s.future = s.future[1:]
	return true
}

// CanUndo reports whether Undo would succeed.
func (s *Store) CanUndo() bool { return len(s.past) > 0 }

// CanRedo reports whether Redo would succeed.
func (s *Store) CanRedo() bool { return len(s.future) > 0 }

// Reset discards the current set and all history, replacing the present
// with the given annotations (used when a new file is loaded or an
// external set is imported).
func (s *Store) Reset(set []Annotation) {
	s.present = cloneSet(set)
	s.past = nil
	s.future = nil
}

// Clear discards all annotations and all history.
func (s *Store) Clear() {
	s.Reset(nil)
}
