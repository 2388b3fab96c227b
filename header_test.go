package gotiffcore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

type seekBuf struct {
	*bytes.Buffer
	pos int64
}

func newSeekBuf() *seekBuf { return &seekBuf{Buffer: new(bytes.Buffer)} }

func (s *seekBuf) Write(p []byte) (int, error) {
	n, err := s.Buffer.Write(p)
	s.pos += int64(n)
	return n, err
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	if whence != 0 {
		return 0, nil
	}
	s.pos = offset
	return s.pos, nil
}

func TestParseHeaderClassicLittleEndian(t *testing.T) {
	bw := newByteWriter(newSeekBuf(), binary.LittleEndian)
	_, err := writeHeader(bw, DialectClassic, binary.LittleEndian)
	assert.NoError(t, err)

	raw := bw.w.(*seekBuf).Bytes()
	order, dialect, firstIFD, err := parseHeader(bytes.NewReader(raw))
	assert.NoError(t, err)
	assert.Equal(t, binary.LittleEndian, order)
	assert.Equal(t, DialectClassic, dialect)
	assert.Equal(t, uint64(0), firstIFD)
}

func TestParseHeaderBigTIFFBigEndian(t *testing.T) {
	bw := newByteWriter(newSeekBuf(), binary.BigEndian)
	ptr, err := writeHeader(bw, DialectBig, binary.BigEndian)
	assert.NoError(t, err)
	assert.Equal(t, int64(8), ptr)

	raw := bw.w.(*seekBuf).Bytes()
	order, dialect, _, err := parseHeader(bytes.NewReader(raw))
	assert.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)
	assert.Equal(t, DialectBig, dialect)
}

func TestParseHeaderBadMagic(t *testing.T) {
	_, _, _, err := parseHeader(bytes.NewReader([]byte{'X', 'X', 0, 0}))
	assert.Error(t, err)
	assert.Equal(t, KindFormat, KindOf(err))
}

func TestParseHeaderTruncated(t *testing.T) {
	_, _, _, err := parseHeader(bytes.NewReader([]byte{'I', 'I'}))
	assert.Error(t, err)
}
