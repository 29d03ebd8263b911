package editor

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfmark/pdfmark/pkg/annotation"
	"github.com/pdfmark/pdfmark/pkg/canvas"
)

func newTestSurface(t *testing.T) (*Surface, *annotation.Store, *canvas.Canvas) {
	t.Helper()
	fonts, err := canvas.NewFontCache()
	require.NoError(t, err)
	cv := canvas.New(800, 600, fonts)
	store := annotation.NewStore()
	s := New(store, cv, nil)
	s.SetPage(1, 800, 600)
	return s, store, cv
}

func testImageData(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCreateTextViaPointer(t *testing.T) {
	s, store, cv := newTestSurface(t)
	s.SetTool(ToolText)
	s.PointerDown(120, 90)

	assert.Equal(t, ToolSelect, s.Tool(), "creation tool reverts to select")
	require.Equal(t, 1, store.Len())
	a := store.All()[0]
	assert.Equal(t, annotation.KindText, a.Kind())
	assert.Equal(t, 120.0, a.Meta().X)
	assert.Equal(t, 90.0, a.Meta().Y)

	obj := cv.Object(a.Meta().ID)
	require.NotNil(t, obj, "sync must materialize the new object")

	// the engine's measured box is written back as ground truth
	assert.InDelta(t, obj.Bounds().Width, a.Meta().Width, 0.01)
	assert.InDelta(t, obj.Bounds().Height, a.Meta().Height, 0.01)
}

func TestCreateSymbolScaledPointer(t *testing.T) {
	s, store, _ := newTestSurface(t)
	s.SetScale(2)
	s.SetTool(ToolCheck)
	s.PointerDown(100, 60)

	require.Equal(t, 1, store.Len())
	m := store.All()[0].Meta()
	assert.Equal(t, 50.0, m.X, "pointer position divides by scale")
	assert.Equal(t, 30.0, m.Y)
	assert.Equal(t, 24.0, m.Width)
}

func TestSyncRemovesStaleObjects(t *testing.T) {
	s, store, cv := newTestSurface(t)
	a := store.Add(annotation.KindCheck, 10, 10, 1, 800, 600)
	b := store.Add(annotation.KindCross, 50, 50, 2, 800, 600)
	s.Sync()

	assert.NotNil(t, cv.Object(a.Meta().ID))
	assert.Nil(t, cv.Object(b.Meta().ID), "other-page records stay off the surface")

	store.Remove(a.Meta().ID)
	s.Sync()
	assert.Nil(t, cv.Object(a.Meta().ID))

	s.SetPage(2, 800, 600)
	assert.NotNil(t, cv.Object(b.Meta().ID))
}

func TestSyncIsIdempotent(t *testing.T) {
	s, store, _ := newTestSurface(t)
	store.Add(annotation.KindCheck, 10, 10, 1, 800, 600)

	s.Sync()
	s.Sync()
	s.Sync()

	// only the add is in history; redundant syncs contributed nothing
	assert.True(t, s.Undo())
	assert.Equal(t, 0, store.Len())
	assert.False(t, s.Undo())
}

func TestEndTransformSingle(t *testing.T) {
	s, store, cv := newTestSurface(t)
	a := store.Add(annotation.KindCheck, 10, 10, 1, 800, 600)
	s.Sync()
	id := a.Meta().ID

	cv.Select(id)
	cv.Object(id).MoveTo(200, 150)
	s.EndTransform()

	got, ok := store.ByID(id)
	require.True(t, ok)
	assert.Equal(t, 200.0, got.Meta().X)
	assert.Equal(t, 150.0, got.Meta().Y)
}

func TestEndTransformMultiIsOneUndoStep(t *testing.T) {
	s, store, cv := newTestSurface(t)
	a := store.Add(annotation.KindCheck, 10, 10, 1, 800, 600)
	b := store.Add(annotation.KindCross, 60, 60, 1, 800, 600)
	s.Sync()

	cv.Select(a.Meta().ID, b.Meta().ID)
	cv.Object(a.Meta().ID).MoveTo(110, 110)
	cv.Object(b.Meta().ID).MoveTo(160, 160)
	s.EndTransform()

	require.True(t, s.Undo(), "one undo reverts the whole gesture")
	gotA, _ := store.ByID(a.Meta().ID)
	gotB, _ := store.ByID(b.Meta().ID)
	assert.Equal(t, 10.0, gotA.Meta().X)
	assert.Equal(t, 60.0, gotB.Meta().X)
}

func TestFreehandStroke(t *testing.T) {
	s, store, cv := newTestSurface(t)
	s.SetTool(ToolDraw)
	s.PointerDown(100, 100)
	s.PointerMove(120, 130)
	s.PointerMove(150, 110)
	s.PointerUp()

	require.Equal(t, 1, store.Len())
	a := store.All()[0]
	require.Equal(t, annotation.KindDraw, a.Kind())
	draw := a.(*annotation.Draw)
	assert.NotEmpty(t, draw.Path)
	assert.Equal(t, 2.0, draw.StrokeWidth)
	assert.Equal(t, 100.0, a.Meta().X, "anchored at the stroke bounding box")
	assert.Equal(t, 100.0, a.Meta().Y)
	assert.NotNil(t, cv.Object(a.Meta().ID))
	assert.Equal(t, ToolDraw, s.Tool(), "draw stays active for the next stroke")
}

func TestSignaturePlacementFlow(t *testing.T) {
	s, store, cv := newTestSurface(t)
	s.SetScale(2)

	var cbX, cbY float64
	called := false
	s.OnPlaceSignature(func(x, y float64) {
		called = true
		cbX, cbY = x, y
	})

	s.SetTool(ToolSignature)
	s.PointerDown(300, 200)
	require.True(t, called, "signature tool defers to the placement callback")
	assert.Equal(t, 150.0, cbX)
	assert.Equal(t, 100.0, cbY)
	assert.Equal(t, ToolSelect, s.Tool())
	assert.Equal(t, 0, store.Len(), "creation waits for the dialog")

	id := s.PlaceSignature(cbX, cbY, testImageData(t), 80, 40)
	got, ok := store.ByID(id)
	require.True(t, ok)
	assert.Equal(t, annotation.KindSignature, got.Kind())

	obj := cv.Object(id)
	require.NotNil(t, obj, "decoded signature materializes on the surface")
	assert.InDelta(t, 160.0, obj.Bounds().Width, 0.01, "display box at scale 2")
}

func TestSignatureCompletedByHostAfterPlaceholder(t *testing.T) {
	s, _, cv := newTestSurface(t)

	// The host defers the decode: the record starts without image data
	// and gets no visual until CompleteSignature delivers the pixels.
	id := s.PlaceSignature(30, 40, "", 40, 20)
	assert.Nil(t, cv.Object(id))

	s.Sync()
	assert.Nil(t, cv.Object(id), "placeholder must stay invisible across syncs")

	s.CompleteSignature(id, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	obj := cv.Object(id)
	require.NotNil(t, obj)
	assert.InDelta(t, 30.0, obj.Bounds().X, 0.01)
	assert.InDelta(t, 40.0, obj.Bounds().Y, 0.01)

	// once resolved, the insert no longer counts as pending
	s.CompleteSignature(id, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.InDelta(t, 40.0, cv.Object(id).Bounds().Width, 0.01)
}

func TestSignatureDataArrivingThroughStoreResolvesPending(t *testing.T) {
	s, store, cv := newTestSurface(t)

	id := s.PlaceSignature(30, 40, "", 40, 20)
	assert.Nil(t, cv.Object(id))

	store.Update(id, annotation.Patch{ImageData: annotation.Str(testImageData(t))})
	s.Sync()
	require.NotNil(t, cv.Object(id))
}

func TestCompleteSignatureAfterDeletionIsNoop(t *testing.T) {
	s, store, cv := newTestSurface(t)
	id := s.PlaceSignature(10, 10, testImageData(t), 40, 20)
	store.Remove(id)
	s.Sync()

	s.CompleteSignature(id, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.Nil(t, cv.Object(id))
}

func TestDeleteSuppressedDuringTextEdit(t *testing.T) {
	s, store, cv := newTestSurface(t)
	a := store.Add(annotation.KindText, 10, 10, 1, 800, 600,
		annotation.Patch{Content: annotation.Str("hello")})
	s.Sync()
	id := a.Meta().ID

	cv.Select(id)
	require.True(t, s.BeginTextEdit(id))
	s.DeleteSelected()
	assert.Equal(t, 1, store.Len(), "delete must not remove a text mid-edit")

	s.EndTextEdit(id)
	s.DeleteSelected()
	assert.Equal(t, 0, store.Len())
	assert.Nil(t, cv.Object(id))
}

func TestEditTextWritesBackContinuously(t *testing.T) {
	s, store, _ := newTestSurface(t)
	a := store.Add(annotation.KindText, 10, 10, 1, 800, 600,
		annotation.Patch{Content: annotation.Str("hi")})
	s.Sync()
	id := a.Meta().ID

	before, _ := store.ByID(id)
	s.EditText(id, "hi there, considerably longer")
	after, _ := store.ByID(id)

	require.IsType(t, &annotation.Text{}, after)
	assert.Equal(t, "hi there, considerably longer", after.(*annotation.Text).Content)
	assert.Greater(t, after.Meta().Width, before.Meta().Width)
}

func TestApplyFormattingToSelection(t *testing.T) {
	s, store, cv := newTestSurface(t)
	a := store.Add(annotation.KindText, 10, 10, 1, 800, 600,
		annotation.Patch{Content: annotation.Str("styled")})
	s.Sync()
	cv.Select(a.Meta().ID)

	f := DefaultFormatting()
	f.FontSize = 24
	f.Bold = true
	f.Fill = "#FF0000"
	s.ApplyFormatting(f)

	got, _ := store.ByID(a.Meta().ID)
	text := got.(*annotation.Text)
	assert.Equal(t, 24.0, text.FontSize)
	assert.True(t, text.Bold)
	assert.Equal(t, "#FF0000", text.Fill)
}

func TestSelectionChangedCallback(t *testing.T) {
	s, store, _ := newTestSurface(t)
	a := store.Add(annotation.KindText, 10, 10, 1, 800, 600,
		annotation.Patch{
			Content:  annotation.Str("x"),
			FontSize: annotation.Float(20),
		})
	s.Sync()

	var gotIDs []string
	var gotFmt Formatting
	s.OnSelectionChanged(func(ids []string, f Formatting) {
		gotIDs = ids
		gotFmt = f
	})

	b := a.Meta()
	s.PointerDown(b.X+1, b.Y+1)
	require.Len(t, gotIDs, 1)
	assert.Equal(t, b.ID, gotIDs[0])
	assert.Equal(t, 20.0, gotFmt.FontSize)
}
