package pdf

import (
	"bytes"
	"fmt"
	"sort"
)

// Updater accumulates an incremental update on top of a loaded file.
// New and replaced objects are appended after the original bytes along
// with a cross-reference section whose trailer points back at the
// previous revision, so the original document content is preserved
// byte for byte.
type Updater struct {
	file    *File
	tail    bytes.Buffer
	offsets map[int]int64 // object number -> offset within tail
	gens    map[int]int
	order   []int
	nextNum int
}

// NewUpdater starts an incremental update of f.
func NewUpdater(f *File) *Updater {
	return &Updater{
		file:    f,
		offsets: make(map[int]int64),
		gens:    make(map[int]int),
		nextNum: f.maxObj + 1,
	}
}

// Add appends a new indirect object and returns its reference.
func (u *Updater) Add(obj Object) Reference {
	ref := Reference{Num: u.nextNum}
	u.nextNum++
	u.put(ref, obj)
	return ref
}

// AddStream appends a new stream object, Flate-compressing the data.
func (u *Updater) AddStream(dict Dictionary, data []byte) Reference {
	if dict == nil {
		dict = Dictionary{}
	}
	compressed := flateEncode(data)
	dict["Filter"] = Name("FlateDecode")
	dict["Length"] = Integer(len(compressed))
	return u.Add(Stream{Dict: dict, Raw: compressed})
}

// AddRawStream appends a stream whose data is already in final encoded
// form (e.g. DCT image data); dict must describe it.
func (u *Updater) AddRawStream(dict Dictionary, data []byte) Reference {
	dict["Length"] = Integer(len(data))
	return u.Add(Stream{Dict: dict, Raw: data})
}

// Put replaces the object at an existing reference in this revision.
func (u *Updater) Put(ref Reference, obj Object) {
	u.put(ref, obj)
}

func (u *Updater) put(ref Reference, obj Object) {
	if _, seen := u.offsets[ref.Num]; !seen {
		u.order = append(u.order, ref.Num)
	}
	u.offsets[ref.Num] = int64(u.tail.Len())
	u.gens[ref.Num] = ref.Gen

	fmt.Fprintf(&u.tail, "%d %d obj\n", ref.Num, ref.Gen)
	obj.writeTo(&u.tail)
	u.tail.WriteString("\nendobj\n")
}

// AppendContent adds a content stream to the end of a page's Contents
// array and merges the given font and XObject resources into the page's
// resource dictionary. The stream is wrapped in q/Q so the original
// content's graphics state cannot leak into it.
func (u *Updater) AppendContent(page *Page, content []byte, fonts, xobjects map[Name]Reference) error {
	var wrapped bytes.Buffer
	wrapped.WriteString("q\n")
	wrapped.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		wrapped.WriteByte('\n')
	}
	wrapped.WriteString("Q")
	streamRef := u.AddStream(Dictionary{}, wrapped.Bytes())

	pageDict := page.Dict.Clone()

	// Chain the new stream after whatever Contents form the page uses.
	var contents Array
	switch cur := pageDict.Get("Contents").(type) {
	case nil:
		contents = Array{streamRef}
	case Reference:
		contents = Array{cur, streamRef}
	case Array:
		contents = append(append(Array{}, cur...), streamRef)
	default:
		return fmt.Errorf("page %d has malformed Contents", page.Num)
	}
	pageDict["Contents"] = contents

	// The page may have inherited its resources; give it its own copy
	// with our entries merged in.
	res := page.resources().Clone()
	mergeResource := func(class Name, entries map[Name]Reference) {
		if len(entries) == 0 {
			return
		}
		var sub Dictionary
		if existing, ok := u.file.resolveDict(res.Get(string(class))); ok {
			sub = existing.Clone()
		} else {
			sub = Dictionary{}
		}
		for name, ref := range entries {
			sub[name] = ref
		}
		res[class] = sub
	}
	mergeResource("Font", fonts)
	mergeResource("XObject", xobjects)
	pageDict["Resources"] = res

	if page.Ref.Num == 0 {
		return fmt.Errorf("page %d has no indirect reference", page.Num)
	}
	u.Put(page.Ref, pageDict)
	return nil
}

// Bytes serializes the updated document: original bytes, appended
// objects, a classic xref section and a trailer chaining to the prior
// revision.
func (u *Updater) Bytes() ([]byte, error) {
	var out bytes.Buffer
	out.Write(u.file.data)
	if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
		out.WriteByte('\n')
	}
	base := int64(out.Len())
	out.Write(u.tail.Bytes())

	// Absolute offsets, in ascending object-number order, grouped into
	// contiguous xref subsections.
	nums := append([]int(nil), u.order...)
	sort.Ints(nums)

	xrefPos := out.Len()
	out.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(&out, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			num := nums[k]
			fmt.Fprintf(&out, "%010d %05d n \n", base+u.offsets[num], u.gens[num])
		}
		i = j + 1
	}

	size := u.file.maxObj + 1
	if u.nextNum > size {
		size = u.nextNum
	}
	trailer := Dictionary{
		"Size": Integer(size),
		"Prev": Integer(u.file.startXRef),
	}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v := u.file.trailer[key]; v != nil {
			trailer[key] = v
		}
	}

	out.WriteString("trailer\n")
	trailer.writeTo(&out)
	fmt.Fprintf(&out, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return out.Bytes(), nil
}
