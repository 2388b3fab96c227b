package gotiffcore

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpackRoundTrip1Bit(t *testing.T) {
	width, height, spp := 9, 2, 1
	src, err := NewSampleBuffer(SampleFormatUnsigned, 1, width*height*spp)
	assert.NoError(t, err)
	pattern := []byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 0, 1, 0, 1, 1, 1, 0, 1, 0}
	copy(src.Uint8, pattern)

	raw, err := PackChunk(src, 0, width, height, spp, 1, binary.BigEndian)
	assert.NoError(t, err)
	assert.Equal(t, packedRowStride(width*spp, 1)*height, len(raw))

	dst, err := NewSampleBuffer(SampleFormatUnsigned, 1, width*height*spp)
	assert.NoError(t, err)
	err = UnpackChunk(dst, 0, raw, width, height, spp, 1, binary.BigEndian)
	assert.NoError(t, err)
	assert.Equal(t, src.Uint8, dst.Uint8)
}

func TestPackUnpackRoundTrip8BitRGB(t *testing.T) {
	width, height, spp := 4, 3, 3
	n := width * height * spp
	src, err := NewSampleBuffer(SampleFormatUnsigned, 8, n)
	assert.NoError(t, err)
	for i := range src.Uint8 {
		src.Uint8[i] = byte(i * 3)
	}

	raw, err := PackChunk(src, 0, width, height, spp, 8, binary.LittleEndian)
	assert.NoError(t, err)

	dst, err := NewSampleBuffer(SampleFormatUnsigned, 8, n)
	assert.NoError(t, err)
	err = UnpackChunk(dst, 0, raw, width, height, spp, 8, binary.LittleEndian)
	assert.NoError(t, err)
	assert.Equal(t, src.Uint8, dst.Uint8)
}

func TestPackUnpackRoundTrip16BitSigned(t *testing.T) {
	width, height, spp := 2, 2, 1
	n := width * height * spp
	src, err := NewSampleBuffer(SampleFormatSigned, 16, n)
	assert.NoError(t, err)
	src.Int16[0], src.Int16[1], src.Int16[2], src.Int16[3] = -200, 300, -1, 32000

	raw, err := PackChunk(src, 0, width, height, spp, 16, binary.BigEndian)
	assert.NoError(t, err)

	dst, err := NewSampleBuffer(SampleFormatSigned, 16, n)
	assert.NoError(t, err)
	err = UnpackChunk(dst, 0, raw, width, height, spp, 16, binary.BigEndian)
	assert.NoError(t, err)
	assert.Equal(t, src.Int16, dst.Int16)
}

func TestPackUnpackRoundTripFloat32(t *testing.T) {
	width, height, spp := 2, 1, 1
	n := width * height * spp
	src, err := NewSampleBuffer(SampleFormatIEEEFP, 32, n)
	assert.NoError(t, err)
	src.Float32[0], src.Float32[1] = 3.5, -12.25

	raw, err := PackChunk(src, 0, width, height, spp, 32, binary.LittleEndian)
	assert.NoError(t, err)

	dst, err := NewSampleBuffer(SampleFormatIEEEFP, 32, n)
	assert.NoError(t, err)
	err = UnpackChunk(dst, 0, raw, width, height, spp, 32, binary.LittleEndian)
	assert.NoError(t, err)
	assert.Equal(t, src.Float32, dst.Float32)
}

func TestUnpackChunkRejectsTruncatedStream(t *testing.T) {
	dst, err := NewSampleBuffer(SampleFormatUnsigned, 8, 16)
	assert.NoError(t, err)
	err = UnpackChunk(dst, 0, []byte{1, 2, 3}, 4, 4, 1, 8, binary.BigEndian)
	assert.Error(t, err)
	assert.Equal(t, ReasonTruncatedValue, ReasonOf(err))
}

func TestInvertWhiteIsZero8Bit(t *testing.T) {
	buf, err := NewSampleBuffer(SampleFormatUnsigned, 8, 3)
	assert.NoError(t, err)
	buf.Uint8[0], buf.Uint8[1], buf.Uint8[2] = 0, 128, 255

	err = InvertWhiteIsZero(buf, 0, 3)
	assert.NoError(t, err)
	assert.Equal(t, []uint8{255, 127, 0}, buf.Uint8)
}

func TestInvertWhiteIsZero1Bit(t *testing.T) {
	buf, err := NewSampleBuffer(SampleFormatUnsigned, 1, 2)
	assert.NoError(t, err)
	buf.Uint8[0], buf.Uint8[1] = 0, 1

	err = InvertWhiteIsZero(buf, 0, 2)
	assert.NoError(t, err)
	assert.Equal(t, []uint8{1, 0}, buf.Uint8)
}
