package gotiffcore

import (
	"bytes"
	"image"
	"image/color"
	"io"
)

// Decode and DecodeConfig satisfy the image.Decode/image.RegisterFormat
// contract so bytes.NewReader/os.Open'd TIFFs flow through the standard
// library's format-sniffing image.Decode the way the teacher's reader.go
// registers "tiff" for its HDR dialects. This bridge only covers the
// chunky, 8-bit-per-sample RGB/Gray/CMYK cases image.Image can represent
// directly (stored in strips or tiles); anything else (16-bit, planar, YCbCr, CMYK
// with extra alpha) should use the Decoder API above instead of this
// adapter, per spec.md §9's note that the core stays free of
// image-processing scope.
func Decode(r io.Reader) (image.Image, error) {
	ra, err := readerAtFrom(r)
	if err != nil {
		return nil, err
	}

	dec, err := New(ra)
	if err != nil {
		return nil, err
	}

	buf, err := dec.ReadImage()
	if err != nil {
		return nil, err
	}

	return toImage(dec, buf)
}

// DecodeConfig returns the color model and dimensions of a TIFF image
// without decoding pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	ra, err := readerAtFrom(r)
	if err != nil {
		return image.Config{}, err
	}

	dec, err := New(ra)
	if err != nil {
		return image.Config{}, err
	}

	w, h := dec.Dimensions()
	return image.Config{
		ColorModel: colorModelFor(dec.ColorType()),
		Width:      w,
		Height:     h,
	}, nil
}

// readerAtFrom buffers r fully when it is not already an io.ReaderAt,
// since the core's Decoder requires random access for IFD walking.
func readerAtFrom(r io.Reader) (Source, error) {
	if ra, ok := r.(io.ReaderAt); ok {
		return ra, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ioErrorf(err, "buffering stream for random access")
	}
	return bytes.NewReader(data), nil
}

func colorModelFor(ct ColorType) color.Model {
	switch ct.Photometric {
	case PhotometricRGB:
		return color.RGBAModel
	case PhotometricCMYK:
		return color.CMYKModel
	default:
		return color.GrayModel
	}
}

// toImage copies a decoded SampleBuffer into a standard-library image
// type. Only 8-bit unsigned, chunky samples are representable; anything
// wider, signed/float or planar is reported as Unsupported rather than
// silently truncated.
func toImage(dec *Decoder, buf *SampleBuffer) (image.Image, error) {
	w, h := dec.Dimensions()
	ct := dec.ColorType()

	if buf.Format != SampleFormatUnsigned || buf.BitsPerSample != 8 {
		return nil, unsupportedErrorf("", "image.Image bridge requires 8-bit unsigned samples, got format=%d bits=%d", buf.Format, buf.BitsPerSample)
	}
	if dec.img.planar == PlanarPlanar {
		return nil, unsupportedErrorf("", "image.Image bridge requires chunky (interleaved) samples")
	}

	switch ct.Photometric {
	case PhotometricRGB:
		if ct.SamplesPerPixel < 3 {
			return nil, unsupportedErrorf("", "RGB photometric with only %d samples per pixel", ct.SamplesPerPixel)
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		spp := ct.SamplesPerPixel
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := (y*w + x) * spp
				var a byte = 0xff
				if spp >= 4 {
					a = buf.Uint8[i+3]
				}
				img.SetRGBA(x, y, color.RGBA{R: buf.Uint8[i], G: buf.Uint8[i+1], B: buf.Uint8[i+2], A: a})
			}
		}
		return img, nil
	case PhotometricCMYK:
		img := image.NewCMYK(image.Rect(0, 0, w, h))
		copy(img.Pix, buf.Uint8)
		return img, nil
	case PhotometricBlackIsZero, PhotometricWhiteIsZero:
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, buf.Uint8)
		return img, nil
	default:
		return nil, unsupportedErrorf("", "image.Image bridge does not support photometric interpretation %s", ct.String())
	}
}

func init() {
	image.RegisterFormat("tiff", leMagicClassic, Decode, DecodeConfig)
	image.RegisterFormat("tiff", beMagicClassic, Decode, DecodeConfig)
	image.RegisterFormat("tiff", leMagicBig, Decode, DecodeConfig)
	image.RegisterFormat("tiff", beMagicBig, Decode, DecodeConfig)
}
