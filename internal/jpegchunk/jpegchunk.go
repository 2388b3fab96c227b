// Package jpegchunk decodes "new style" JPEG chunks (TIFF compression
// code 7) via the standard library's image/jpeg. No third-party JPEG
// *decoder* appears anywhere in the retrieval pack — the closest hits
// are a from-scratch JPEG *encoder* and JPEG *metadata* readers, neither
// of which decodes pixels — so this is a deliberate, justified use of
// the standard library (see DESIGN.md).
//
// Per spec.md §4.4/§9, samples are emitted in their native color space:
// this package never converts YCbCr to RGB or applies any photometric
// interpretation. Component planes are simply walked in their natural
// per-pixel order and concatenated; the caller's declared
// PhotometricInterpretation tag remains authoritative for how to
// interpret the resulting samples.
package jpegchunk

import (
	"image"
	"image/jpeg"
	"io"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
	"github.com/mdouchement/gotiffcore/internal/codecerr"
)

// Decode reads one standalone JPEG bitstream and returns its samples as
// a flat byte stream, samplesPerPixel bytes per pixel, row-major.
func Decode(r io.Reader, bound int64, _ codecctx.Context) ([]byte, error) {
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, err
	}

	out := serialize(img)
	if int64(len(out)) > bound {
		return nil, codecerr.LimitExceeded("decoded JPEG chunk of %d bytes exceeds bound of %d bytes", len(out), bound)
	}
	return out, nil
}

func serialize(img image.Image) []byte {
	switch m := img.(type) {
	case *image.Gray:
		return append([]byte(nil), m.Pix...)
	case *image.CMYK:
		return append([]byte(nil), m.Pix...)
	case *image.YCbCr:
		return serializeYCbCr(m)
	default:
		b := img.Bounds()
		out := make([]byte, 0, b.Dx()*b.Dy()*4)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, a := img.At(x, y).RGBA()
				out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8), byte(a>>8))
			}
		}
		return out
	}
}

// serializeYCbCr walks the image's native (possibly chroma-subsampled
// internally) planes and emits one Y/Cb/Cr triple per pixel, nearest-
// sampling the chroma planes up to full resolution. This keeps the
// output a simple samplesPerPixel-per-pixel stream without performing
// any YCbCr->RGB conversion.
func serializeYCbCr(m *image.YCbCr) []byte {
	b := m.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			yi := m.YOffset(x, y)
			ci := m.COffset(x, y)
			out = append(out, m.Y[yi], m.Cb[ci], m.Cr[ci])
		}
	}
	return out
}
