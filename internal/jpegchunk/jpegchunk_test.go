package jpegchunk

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
	"github.com/stretchr/testify/assert"
)

func TestDecodeFlatGrayJPEG(t *testing.T) {
	const w, h = 16, 16
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	var buf bytes.Buffer
	assert.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))

	out, err := Decode(bytes.NewReader(buf.Bytes()), int64(w*h), codecctx.Context{Width: w, Height: h})
	assert.NoError(t, err)
	assert.Equal(t, w*h, len(out))
	for _, b := range out {
		assert.Equal(t, byte(128), b)
	}
}

func TestDecodeRejectsOversizedOutput(t *testing.T) {
	const w, h = 16, 16
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	assert.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))

	_, err := Decode(bytes.NewReader(buf.Bytes()), 4, codecctx.Context{Width: w, Height: h})
	assert.Error(t, err)
}
