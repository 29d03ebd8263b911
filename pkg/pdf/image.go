package pdf

import (
	"image"
)

// EmbedImage writes an image as an 8-bit DeviceRGB image XObject. Alpha
// is preserved through an SMask stream when any pixel is not fully
// opaque, which signature stamps rely on for transparent backgrounds.
func EmbedImage(u *Updater, img image.Image) Reference {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				rgb = append(rgb, 0, 0, 0)
			} else {
				// undo premultiplication
				rgb = append(rgb,
					byte((r*0xFFFF/a)>>8),
					byte((g*0xFFFF/a)>>8),
					byte((bl*0xFFFF/a)>>8))
			}
			alpha = append(alpha, byte(a>>8))
			if a != 0xFFFF {
				opaque = false
			}
		}
	}

	dict := Dictionary{
		"Type":             Name("XObject"),
		"Subtype":          Name("Image"),
		"Width":            Integer(w),
		"Height":           Integer(h),
		"ColorSpace":       Name("DeviceRGB"),
		"BitsPerComponent": Integer(8),
	}
	if !opaque {
		dict["SMask"] = u.AddStream(Dictionary{
			"Type":             Name("XObject"),
			"Subtype":          Name("Image"),
			"Width":            Integer(w),
			"Height":           Integer(h),
			"ColorSpace":       Name("DeviceGray"),
			"BitsPerComponent": Integer(8),
		}, alpha)
	}
	return u.AddStream(dict, rgb)
}
