package gotiffcore_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	tiff "github.com/mdouchement/gotiffcore"
	"github.com/stretchr/testify/assert"
)

func buildRGBFile(t *testing.T) []byte {
	t.Helper()
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)
	assert.NoError(t, enc.NewImage(2, 2, 3, 8, tiff.SampleFormatUnsigned, tiff.PhotometricRGB))
	assert.NoError(t, enc.WriteRow(uint8Buffer(10, 20, 30, 40, 50, 60)))
	assert.NoError(t, enc.WriteRow(uint8Buffer(70, 80, 90, 100, 110, 120)))
	assert.NoError(t, enc.Finish())
	return sink.data
}

func TestImageDecodeRGB(t *testing.T) {
	raw := buildRGBFile(t)

	img, err := tiff.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	rgba, ok := img.(*image.RGBA)
	assert.True(t, ok)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 0xff}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 100, G: 110, B: 120, A: 0xff}, rgba.RGBAAt(1, 1))
}

func TestImageDecodeConfig(t *testing.T) {
	raw := buildRGBFile(t)

	cfg, err := tiff.DecodeConfig(bytes.NewReader(raw))
	assert.NoError(t, err)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 2, cfg.Height)
}

func TestImageDecodeRejectsNon8BitSamples(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)
	assert.NoError(t, enc.NewImage(2, 1, 1, 16, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero))
	buf, err := tiff.NewSampleBuffer(tiff.SampleFormatUnsigned, 16, 2)
	assert.NoError(t, err)
	copy(buf.Uint16, []uint16{1000, 2000})
	assert.NoError(t, enc.WriteRow(buf))
	assert.NoError(t, enc.Finish())

	_, err = tiff.Decode(bytes.NewReader(sink.data))
	assert.Error(t, err)
	assert.Equal(t, tiff.KindUnsupported, tiff.KindOf(err))
}

func TestImageFormatIsRegistered(t *testing.T) {
	raw := buildRGBFile(t)

	img, format, err := image.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
	assert.Equal(t, "tiff", format)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
}
