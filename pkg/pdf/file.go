package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrEncrypted is returned by Load when a document is protected and the
// password (the empty user password for plain Load) does not open it.
var ErrEncrypted = errors.New("pdf: document is encrypted")

// ErrNotPDF is returned by Load when the header is missing.
var ErrNotPDF = errors.New("pdf: missing %PDF header")

type xrefEntry struct {
	offset int64
	gen    int
	inUse  bool
	// set for objects living inside an object stream
	streamNum   int
	streamIndex int
}

// File is a loaded PDF document. It keeps the original bytes verbatim;
// all mutation happens through an Updater, which appends a new revision.
type File struct {
	data    []byte
	version string

	trailer   Dictionary
	catalog   Dictionary
	pages     []*Page
	xref      map[int]xrefEntry
	cache     map[int]Object
	maxObj    int
	startXRef int64
	security  *securityHandler
}

// Page is one page of a loaded document.
type Page struct {
	Num      int // 1-based
	Ref      Reference
	Dict     Dictionary
	MediaBox Rect

	file *File
}

// Width returns the page width in PDF points at scale=1.
func (p *Page) Width() float64 { return p.MediaBox.Width() }

// Height returns the page height in PDF points at scale=1.
func (p *Page) Height() float64 { return p.MediaBox.Height() }

// Load parses a PDF document from memory. The byte slice is retained by
// the returned File and must not be modified by the caller afterwards.
// Encrypted documents are opened with the empty user password.
func Load(data []byte) (*File, error) {
	return LoadWithPassword(data, "")
}

// LoadWithPassword is Load for password-protected documents. The
// password is tried as the user password first, then as the owner
// password.
func LoadWithPassword(data []byte, password string) (*File, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	f := &File{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]Object),
	}
	if eol := bytes.IndexAny(data[:minInt(len(data), 16)], "\r\n"); eol > 5 {
		f.version = string(data[5:eol])
	}

	start, err := f.findStartXRef()
	if err != nil {
		return nil, err
	}
	f.startXRef = start
	if err := f.parseXRef(start, 0); err != nil {
		return nil, fmt.Errorf("parse xref: %w", err)
	}

	if enc := f.trailer.Get("Encrypt"); enc != nil {
		if err := f.setupEncryption(enc, password); err != nil {
			return nil, err
		}
	}

	rootObj, err := f.Resolve(f.trailer.Get("Root"))
	if err != nil {
		return nil, fmt.Errorf("resolve catalog: %w", err)
	}
	catalog, ok := rootObj.(Dictionary)
	if !ok {
		return nil, fmt.Errorf("pdf: catalog is missing or not a dictionary")
	}
	f.catalog = catalog

	if err := f.loadPages(); err != nil {
		return nil, fmt.Errorf("parse page tree: %w", err)
	}
	return f, nil
}

// Version returns the header version string, e.g. "1.7".
func (f *File) Version() string { return f.version }

// NumPages returns the page count.
func (f *File) NumPages() int { return len(f.pages) }

// GetPage returns the 1-based page n.
func (f *File) GetPage(n int) (*Page, error) {
	if n < 1 || n > len(f.pages) {
		return nil, fmt.Errorf("pdf: page %d out of range 1..%d", n, len(f.pages))
	}
	return f.pages[n-1], nil
}

// Pages returns all pages in order.
func (f *File) Pages() []*Page { return f.pages }

// Trailer returns the merged trailer dictionary.
func (f *File) Trailer() Dictionary { return f.trailer }

// Catalog returns the document catalog.
func (f *File) Catalog() Dictionary { return f.catalog }

// Bytes returns the original, unmodified document bytes.
func (f *File) Bytes() []byte { return f.data }

// Resolve follows an indirect reference to its object. Non-references
// are returned unchanged; a missing object resolves to Null.
func (f *File) Resolve(obj Object) (Object, error) {
	for i := 0; i < 32; i++ { // cap reference chains
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = f.object(ref.Num)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("pdf: reference chain too deep")
}

// resolveDict resolves obj and returns it as a dictionary (also
// accepting a stream's dictionary).
func (f *File) resolveDict(obj Object) (Dictionary, bool) {
	r, err := f.Resolve(obj)
	if err != nil {
		return nil, false
	}
	switch v := r.(type) {
	case Dictionary:
		return v, true
	case Stream:
		return v.Dict, true
	}
	return nil, false
}

func (f *File) object(num int) (Object, error) {
	if obj, ok := f.cache[num]; ok {
		return obj, nil
	}
	entry, ok := f.xref[num]
	if !ok || !entry.inUse {
		return Null{}, nil
	}

	var obj Object
	var err error
	if entry.streamNum > 0 {
		// Objects inside an object stream are covered by the container
		// stream's decryption, never encrypted individually.
		obj, err = f.objectFromStream(entry.streamNum, entry.streamIndex)
	} else {
		if entry.offset < 0 || entry.offset >= int64(len(f.data)) {
			return Null{}, nil
		}
		sc := newScanner(f.data, int(entry.offset))
		var gen int
		_, gen, obj, err = sc.parseIndirect(f.lengthResolver)
		if err == nil && f.security != nil {
			obj = f.security.decryptObject(obj, num, gen)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	f.cache[num] = obj
	return obj, nil
}

func (f *File) lengthResolver(ref Reference) (int64, bool) {
	obj, err := f.object(ref.Num)
	if err != nil {
		return 0, false
	}
	if n, ok := obj.(Integer); ok {
		return int64(n), true
	}
	return 0, false
}

func (f *File) objectFromStream(streamNum, index int) (Object, error) {
	container, err := f.object(streamNum)
	if err != nil {
		return nil, err
	}
	stm, ok := container.(Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", streamNum)
	}
	data, err := stm.Decoded()
	if err != nil {
		return nil, err
	}

	first, ok := stm.Dict.GetInt("First")
	if !ok {
		return nil, fmt.Errorf("object stream %d missing First", streamNum)
	}
	count, ok := stm.Dict.GetInt("N")
	if !ok {
		return nil, fmt.Errorf("object stream %d missing N", streamNum)
	}
	if int64(index) >= count {
		return nil, fmt.Errorf("object index %d out of range in stream %d", index, streamNum)
	}

	// Header is N pairs of "objnum offset".
	head := newScanner(data, 0)
	var offset int64 = -1
	for i := int64(0); i < count; i++ {
		if _, _, err := head.parseNumber(); err != nil {
			return nil, err
		}
		off, _, err := head.parseNumber()
		if err != nil {
			return nil, err
		}
		if i == int64(index) {
			offset = int64(off)
			break
		}
	}
	if offset < 0 || first+offset > int64(len(data)) {
		return nil, fmt.Errorf("bad offset in object stream %d", streamNum)
	}

	sc := newScanner(data, int(first+offset))
	return sc.parseObject()
}

func (f *File) findStartXRef() (int64, error) {
	tailLen := minInt(len(f.data), 1024)
	tail := f.data[len(f.data)-tailLen:]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("pdf: startxref not found")
	}
	sc := newScanner(tail, idx+len("startxref"))
	v, isInt, err := sc.parseNumber()
	if err != nil || !isInt {
		return 0, fmt.Errorf("pdf: malformed startxref offset")
	}
	return int64(v), nil
}

// parseXRef parses the xref at offset, following Prev chains. depth
// guards against cyclic Prev pointers in damaged files.
func (f *File) parseXRef(offset int64, depth int) error {
	if depth > 32 {
		return fmt.Errorf("xref Prev chain too deep")
	}
	if offset < 0 || offset >= int64(len(f.data)) {
		return fmt.Errorf("xref offset %d out of bounds", offset)
	}

	sc := newScanner(f.data, int(offset))
	sc.skipSpace()
	if sc.keyword("xref") {
		return f.parseXRefTable(sc, depth)
	}
	return f.parseXRefStream(sc, depth)
}

func (f *File) parseXRefTable(sc *scanner, depth int) error {
	for {
		if sc.keyword("trailer") {
			break
		}
		start, isInt, err := sc.parseNumber()
		if err != nil || !isInt {
			return fmt.Errorf("malformed xref subsection header")
		}
		count, isInt, err := sc.parseNumber()
		if err != nil || !isInt {
			return fmt.Errorf("malformed xref subsection header")
		}

		for i := 0; i < int(count); i++ {
			off, _, err := sc.parseNumber()
			if err != nil {
				return err
			}
			gen, _, err := sc.parseNumber()
			if err != nil {
				return err
			}
			flag := sc.readToken()

			num := int(start) + i
			if _, exists := f.xref[num]; !exists {
				f.xref[num] = xrefEntry{
					offset: int64(off),
					gen:    int(gen),
					inUse:  flag == "n",
				}
			}
			if num > f.maxObj {
				f.maxObj = num
			}
		}
	}

	trailerObj, err := sc.parseObject()
	if err != nil {
		return fmt.Errorf("parse trailer: %w", err)
	}
	trailer, ok := trailerObj.(Dictionary)
	if !ok {
		return fmt.Errorf("trailer is not a dictionary")
	}
	f.mergeTrailer(trailer)

	if prev, ok := trailer.GetInt("Prev"); ok {
		return f.parseXRef(prev, depth+1)
	}
	return nil
}

func (f *File) parseXRefStream(sc *scanner, depth int) error {
	_, _, obj, err := sc.parseIndirect(nil)
	if err != nil {
		return err
	}
	stm, ok := obj.(Stream)
	if !ok {
		return fmt.Errorf("expected xref stream")
	}
	data, err := stm.Decoded()
	if err != nil {
		return err
	}

	wArr, ok := stm.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return fmt.Errorf("xref stream missing W array")
	}
	var w [3]int
	for i, o := range wArr {
		n, ok := o.(Integer)
		if !ok {
			return fmt.Errorf("bad W entry")
		}
		w[i] = int(n)
	}
	entryLen := w[0] + w[1] + w[2]
	if entryLen == 0 {
		return fmt.Errorf("zero-width xref entries")
	}

	var index []int64
	if idxArr, ok := stm.Dict.GetArray("Index"); ok {
		for _, o := range idxArr {
			if n, ok := o.(Integer); ok {
				index = append(index, int64(n))
			}
		}
	} else if size, ok := stm.Dict.GetInt("Size"); ok {
		index = []int64{0, size}
	}

	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+entryLen > len(data) {
				break
			}
			e := data[pos : pos+entryLen]
			pos += entryLen

			typ := readBE(e, 0, w[0])
			if w[0] == 0 {
				typ = 1
			}
			fld2 := readBE(e, w[0], w[1])
			fld3 := readBE(e, w[0]+w[1], w[2])

			num := int(start + j)
			if _, exists := f.xref[num]; exists {
				continue
			}
			switch typ {
			case 0:
				f.xref[num] = xrefEntry{inUse: false}
			case 1:
				f.xref[num] = xrefEntry{offset: int64(fld2), gen: fld3, inUse: true}
			case 2:
				f.xref[num] = xrefEntry{streamNum: fld2, streamIndex: fld3, inUse: true}
			}
			if num > f.maxObj {
				f.maxObj = num
			}
		}
	}

	f.mergeTrailer(stm.Dict)
	if prev, ok := stm.Dict.GetInt("Prev"); ok {
		return f.parseXRef(prev, depth+1)
	}
	return nil
}

func readBE(data []byte, offset, width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v = v<<8 | int(data[offset+i])
	}
	return v
}

// mergeTrailer keeps the newest revision's values, backfilling keys from
// older revisions.
func (f *File) mergeTrailer(t Dictionary) {
	if f.trailer == nil {
		f.trailer = t.Clone()
		return
	}
	for k, v := range t {
		if _, exists := f.trailer[k]; !exists {
			f.trailer[k] = v
		}
	}
}

// setupEncryption installs the security handler. The Encrypt dictionary
// itself is parsed (and cached) before the handler exists, so its own
// strings stay as stored.
func (f *File) setupEncryption(enc Object, password string) error {
	dict, ok := f.resolveDict(enc)
	if !ok {
		return fmt.Errorf("%w (malformed Encrypt dictionary)", ErrEncrypted)
	}
	sh, err := f.newSecurityHandler(dict)
	if err != nil {
		return fmt.Errorf("%w (%v)", ErrEncrypted, err)
	}
	if !sh.authenticate(password) {
		v, _ := dict.GetInt("V")
		return fmt.Errorf("%w (wrong password, V=%s)", ErrEncrypted, strconv.FormatInt(v, 10))
	}
	f.security = sh
	return nil
}

// Encrypted reports whether the loaded document carried encryption.
func (f *File) Encrypted() bool { return f.security != nil }

func (f *File) loadPages() error {
	pagesObj, err := f.Resolve(f.catalog.Get("Pages"))
	if err != nil {
		return err
	}
	root, ok := pagesObj.(Dictionary)
	if !ok {
		return fmt.Errorf("catalog has no page tree")
	}
	rootRef, _ := f.catalog.Get("Pages").(Reference)
	return f.walkPageNode(root, rootRef, Rect{}, 0)
}

// walkPageNode flattens the page tree into f.pages, carrying the
// inherited MediaBox down the tree.
func (f *File) walkPageNode(node Dictionary, ref Reference, inherited Rect, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree too deep")
	}

	box := inherited
	if mbObj := node.Get("MediaBox"); mbObj != nil {
		if resolved, err := f.Resolve(mbObj); err == nil {
			if arr, ok := resolved.(Array); ok {
				if r, ok := rectFromArray(arr); ok {
					box = r
				}
			}
		}
	}

	typ, _ := node.GetName("Type")
	if typ == "Page" || (typ == "" && node.Get("Kids") == nil) {
		if box == (Rect{}) {
			box = Rect{URX: 612, URY: 792} // Letter fallback
		}
		f.pages = append(f.pages, &Page{
			Num:      len(f.pages) + 1,
			Ref:      ref,
			Dict:     node,
			MediaBox: box,
			file:     f,
		})
		return nil
	}

	kidsObj, err := f.Resolve(node.Get("Kids"))
	if err != nil {
		return err
	}
	kids, ok := kidsObj.(Array)
	if !ok {
		return fmt.Errorf("page tree node without Kids")
	}
	for _, kid := range kids {
		kidRef, _ := kid.(Reference)
		kidObj, err := f.Resolve(kid)
		if err != nil {
			continue
		}
		kidDict, ok := kidObj.(Dictionary)
		if !ok {
			continue
		}
		if err := f.walkPageNode(kidDict, kidRef, box, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// resources returns the page's resource dictionary, following the
// inheritance chain, or an empty dictionary.
func (p *Page) resources() Dictionary {
	node := p.Dict
	for i := 0; i < 64; i++ {
		if res, ok := p.file.resolveDict(node.Get("Resources")); ok {
			return res
		}
		parent, ok := p.file.resolveDict(node.Get("Parent"))
		if !ok {
			break
		}
		node = parent
	}
	return Dictionary{}
}

// Contents returns the page's decoded content stream bytes, with
// multi-part contents concatenated.
func (p *Page) Contents() ([]byte, error) {
	obj, err := p.file.Resolve(p.Dict.Get("Contents"))
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case Stream:
		return v.Decoded()
	case Array:
		var buf bytes.Buffer
		for _, item := range v {
			r, err := p.file.Resolve(item)
			if err != nil {
				return nil, err
			}
			stm, ok := r.(Stream)
			if !ok {
				continue
			}
			data, err := stm.Decoded()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
