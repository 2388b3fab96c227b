package gotiffcore_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	tiff "github.com/mdouchement/gotiffcore"
	"github.com/stretchr/testify/assert"
)

// memSink is a Sink backed by an in-memory byte slice that actually
// overwrites in place on Seek+Write, unlike appending to a bytes.Buffer,
// so it exercises the encoder's next-IFD-pointer back-patching path
// faithfully.
type memSink struct {
	data []byte
	pos  int64
}

func (m *memSink) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("memSink only supports io.SeekStart")
	}
	m.pos = offset
	return m.pos, nil
}

func uint8Buffer(values ...uint8) *tiff.SampleBuffer {
	buf, err := tiff.NewSampleBuffer(tiff.SampleFormatUnsigned, 8, len(values))
	if err != nil {
		panic(err)
	}
	copy(buf.Uint8, values)
	return buf
}

func TestEncodeDecodeRGB8RoundTrip(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	assert.NoError(t, enc.NewImage(4, 4, 3, 8, tiff.SampleFormatUnsigned, tiff.PhotometricRGB))

	var want []uint8
	for y := 0; y < 4; y++ {
		row := make([]uint8, 4*3)
		for x := 0; x < 4; x++ {
			for c := 0; c < 3; c++ {
				v := uint8(y*30 + x*7 + c)
				row[x*3+c] = v
			}
		}
		want = append(want, row...)
		assert.NoError(t, enc.WriteRow(uint8Buffer(row...)))
	}
	assert.NoError(t, enc.Finish())

	dec, err := tiff.New(bytes.NewReader(sink.data))
	assert.NoError(t, err)

	w, h := dec.Dimensions()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, tiff.PhotometricRGB, dec.ColorType().Photometric)

	out, err := dec.ReadImage()
	assert.NoError(t, err)
	assert.Equal(t, want, out.Uint8)
}

func TestEncodeDecodeWhiteIsZero1Bit(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	assert.NoError(t, enc.NewImage(8, 1, 1, 1, tiff.SampleFormatUnsigned, tiff.PhotometricWhiteIsZero))
	raw := []uint8{0, 1, 0, 1, 1, 0, 0, 1}
	assert.NoError(t, enc.WriteRow(uint8Buffer(raw...)))
	assert.NoError(t, enc.Finish())

	dec, err := tiff.New(bytes.NewReader(sink.data))
	assert.NoError(t, err)

	out, err := dec.ReadImage()
	assert.NoError(t, err)

	want := make([]uint8, len(raw))
	for i, v := range raw {
		want[i] = 1 - v // WhiteIsZero inversion applied on decode
	}
	assert.Equal(t, want, out.Uint8)
}

func TestEncodeDecodeMultipageChaining(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	assert.NoError(t, enc.NewImage(2, 2, 1, 8, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero))
	assert.NoError(t, enc.WriteRow(uint8Buffer(1, 2)))
	assert.NoError(t, enc.WriteRow(uint8Buffer(3, 4)))
	assert.NoError(t, enc.Finish())

	assert.NoError(t, enc.NewImage(2, 2, 1, 8, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero))
	assert.NoError(t, enc.WriteRow(uint8Buffer(5, 6)))
	assert.NoError(t, enc.WriteRow(uint8Buffer(7, 8)))
	assert.NoError(t, enc.Finish())

	dec, err := tiff.New(bytes.NewReader(sink.data))
	assert.NoError(t, err)

	out1, err := dec.ReadImage()
	assert.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 4}, out1.Uint8)

	more, err := dec.NextImage()
	assert.NoError(t, err)
	assert.True(t, more)

	out2, err := dec.ReadImage()
	assert.NoError(t, err)
	assert.Equal(t, []uint8{5, 6, 7, 8}, out2.Uint8)

	more, err = dec.NextImage()
	assert.NoError(t, err)
	assert.False(t, more)
}

func TestEncodeDecodePackBitsCompression(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	assert.NoError(t, enc.NewImage(6, 2, 1, 8, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero))
	assert.NoError(t, enc.WithCompression(tiff.CompressionPackBits))

	row0 := []uint8{9, 9, 9, 9, 9, 9} // a long run, favorable to PackBits
	row1 := []uint8{1, 2, 3, 4, 5, 6}
	assert.NoError(t, enc.WriteRow(uint8Buffer(row0...)))
	assert.NoError(t, enc.WriteRow(uint8Buffer(row1...)))
	assert.NoError(t, enc.Finish())

	dec, err := tiff.New(bytes.NewReader(sink.data))
	assert.NoError(t, err)

	compTag, ok := dec.GetTag(tiff.TagCompression)
	assert.True(t, ok)
	compU, err := compTag.Uint(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(tiff.CompressionPackBits), compU)

	out, err := dec.ReadImage()
	assert.NoError(t, err)
	assert.Equal(t, append(append([]uint8{}, row0...), row1...), out.Uint8)
}

func TestEncodeDecodeHorizontalPredictor16Bit(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	assert.NoError(t, enc.NewImage(4, 1, 1, 16, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero))
	assert.NoError(t, enc.WithPredictor(tiff.PredictorHorizontal))
	assert.NoError(t, enc.WithCompression(tiff.CompressionDeflate))

	buf, err := tiff.NewSampleBuffer(tiff.SampleFormatUnsigned, 16, 4)
	assert.NoError(t, err)
	copy(buf.Uint16, []uint16{100, 105, 90, 300})
	assert.NoError(t, enc.WriteRow(buf))
	assert.NoError(t, enc.Finish())

	dec, err := tiff.New(bytes.NewReader(sink.data))
	assert.NoError(t, err)

	out, err := dec.ReadImage()
	assert.NoError(t, err)
	assert.Equal(t, []uint16{100, 105, 90, 300}, out.Uint16)
}

func TestEncoderRejectsUsageErrors(t *testing.T) {
	sink := &memSink{}
	enc, err := tiff.NewEncoder(sink, tiff.DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	// WriteRow before NewImage.
	err = enc.WriteRow(uint8Buffer(1))
	assert.Error(t, err)

	assert.NoError(t, enc.NewImage(2, 1, 1, 8, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero))
	assert.NoError(t, enc.WriteRow(uint8Buffer(1, 2)))

	// Staging a tag after data has been written must fail.
	err = enc.WriteTag(tiff.TagArtist, tiff.Value{})
	assert.Error(t, err)

	// Starting a second image before Finish must fail.
	err = enc.NewImage(2, 1, 1, 8, tiff.SampleFormatUnsigned, tiff.PhotometricBlackIsZero)
	assert.Error(t, err)

	assert.NoError(t, enc.Finish())

	// Finish with no image in progress must fail.
	err = enc.Finish()
	assert.Error(t, err)
}
