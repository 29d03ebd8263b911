package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// decodeStream applies a stream's filter chain. Only the filters the
// editor actually encounters are implemented; image filters (DCTDecode,
// JPXDecode) pass their data through untouched since the raster data is
// handed to an image decoder anyway.
func decodeStream(dict Dictionary, data []byte) ([]byte, error) {
	var filters []Name
	switch f := dict.Get("Filter").(type) {
	case nil:
		return data, nil
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := item.(Name); ok {
				filters = append(filters, n)
			}
		}
	}

	var params []Dictionary
	switch p := dict.Get("DecodeParms").(type) {
	case Dictionary:
		params = []Dictionary{p}
	case Array:
		for _, item := range p {
			d, _ := item.(Dictionary)
			params = append(params, d)
		}
	}

	var err error
	for i, filter := range filters {
		var parm Dictionary
		if i < len(params) {
			parm = params[i]
		}
		switch filter {
		case "FlateDecode":
			data, err = flateDecode(data, parm)
		case "ASCIIHexDecode":
			data, err = asciiHexDecode(data)
		case "RunLengthDecode":
			data, err = runLengthDecode(data)
		case "DCTDecode", "JPXDecode":
			// raster payload, not ours to unpack
		default:
			return nil, fmt.Errorf("unsupported stream filter %s", filter)
		}
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", filter, err)
		}
	}
	return data, nil
}

// flateEncode compresses data for streams this package writes.
func flateEncode(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func flateDecode(data []byte, parm Dictionary) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if parm != nil {
		if pred, ok := parm.GetInt("Predictor"); ok && pred > 1 {
			return unpredict(out, parm)
		}
	}
	return out, nil
}

// unpredict reverses the PNG row predictors used by xref streams. The
// TIFF predictor (2) does not appear in files the editor produces or
// consumes and is passed through.
func unpredict(data []byte, parm Dictionary) ([]byte, error) {
	pred, _ := parm.GetInt("Predictor")
	if pred < 10 {
		return data, nil
	}

	columns := int64(1)
	if v, ok := parm.GetInt("Columns"); ok {
		columns = v
	}
	colors := int64(1)
	if v, ok := parm.GetInt("Colors"); ok {
		colors = v
	}
	bpc := int64(8)
	if v, ok := parm.GetInt("BitsPerComponent"); ok {
		bpc = v
	}

	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)
	stride := rowLen + 1
	if stride <= 1 || len(data)%stride != 0 {
		return nil, fmt.Errorf("predictor row length %d does not divide data length %d", stride, len(data))
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		ft := data[r*stride]
		src := data[r*stride+1 : (r+1)*stride]
		dst := out[r*rowLen : (r+1)*rowLen]

		switch ft {
		case 0:
			copy(dst, src)
		case 1:
			for i := range src {
				left := byte(0)
				if i >= bpp {
					left = dst[i-bpp]
				}
				dst[i] = src[i] + left
			}
		case 2:
			for i := range src {
				dst[i] = src[i] + prev[i]
			}
		case 3:
			for i := range src {
				left := byte(0)
				if i >= bpp {
					left = dst[i-bpp]
				}
				dst[i] = src[i] + byte((int(left)+int(prev[i]))/2)
			}
		case 4:
			for i := range src {
				var left, upLeft byte
				if i >= bpp {
					left = dst[i-bpp]
					upLeft = prev[i-bpp]
				}
				dst[i] = src[i] + paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG predictor filter %d", ft)
		}
		copy(prev, dst)
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := iabs(p-int(a)), iabs(p-int(b)), iabs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var out []byte
	var hi byte
	haveHi := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		default:
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out, nil
}

func runLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("truncated run-length data")
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("truncated run-length data")
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
	}
	return out, nil
}
