package gotiffcore

import (
	"encoding/binary"
	"io"
	"math"
)

// Source is the abstract seekable byte source the decoder consumes
// (spec.md §1: "the core consumes an abstract seekable byte source").
// Any io.ReaderAt satisfies it; callers typically pass *os.File or
// bytes.NewReader.
type Source = io.ReaderAt

// Sink is the abstract byte sink the encoder writes through. It must
// support both sequential writes and seeking back to patch offsets
// already written (StripOffsets/TileOffsets, next-IFD pointers).
type Sink interface {
	io.Writer
	io.Seeker
}

// byteReader wraps a Source with the file's fixed byte order and
// exposes endian-aware primitive reads at arbitrary offsets. All
// multi-byte scalars in IFD bodies and pixel streams go through this
// type, per spec.md §4.1.
type byteReader struct {
	r     Source
	order binary.ByteOrder
}

func newByteReader(r Source, order binary.ByteOrder) *byteReader {
	return &byteReader{r: r, order: order}
}

func (b *byteReader) read(off int64, n int) ([]byte, error) {
	if off < 0 {
		return nil, limitsErrorf("negative offset %d", off)
	}
	buf := make([]byte, n)
	read, err := b.r.ReadAt(buf, off)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, ioErrorf(err, "reading %d bytes at offset %d", n, off)
	}
	if read != n {
		return nil, formatErrorf(ReasonUnexpectedEOF, "short read of %d bytes at offset %d (got %d)", n, off, read)
	}
	return buf, nil
}

func (b *byteReader) Uint8(off int64) (uint8, error) {
	p, err := b.read(off, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *byteReader) Uint16(off int64) (uint16, error) {
	p, err := b.read(off, 2)
	if err != nil {
		return 0, err
	}
	return b.order.Uint16(p), nil
}

func (b *byteReader) Uint32(off int64) (uint32, error) {
	p, err := b.read(off, 4)
	if err != nil {
		return 0, err
	}
	return b.order.Uint32(p), nil
}

func (b *byteReader) Uint64(off int64) (uint64, error) {
	p, err := b.read(off, 8)
	if err != nil {
		return 0, err
	}
	return b.order.Uint64(p), nil
}

func (b *byteReader) Int8(off int64) (int8, error) {
	v, err := b.Uint8(off)
	return int8(v), err
}

func (b *byteReader) Int16(off int64) (int16, error) {
	v, err := b.Uint16(off)
	return int16(v), err
}

func (b *byteReader) Int32(off int64) (int32, error) {
	v, err := b.Uint32(off)
	return int32(v), err
}

func (b *byteReader) Int64(off int64) (int64, error) {
	v, err := b.Uint64(off)
	return int64(v), err
}

func (b *byteReader) Float32(off int64) (float32, error) {
	v, err := b.Uint32(off)
	return math.Float32frombits(v), err
}

func (b *byteReader) Float64(off int64) (float64, error) {
	v, err := b.Uint64(off)
	return math.Float64frombits(v), err
}

func (b *byteReader) Bytes(off int64, n int64) ([]byte, error) {
	if n < 0 || n > math.MaxInt32 {
		return nil, limitsErrorf("byte range length %d is out of range", n)
	}
	return b.read(off, int(n))
}

// byteWriter is the encoder-side counterpart: endian-aware primitive
// writes plus positional patching over a Sink.
type byteWriter struct {
	w     Sink
	order binary.ByteOrder
	pos   int64 // bytes written so far via sequential Write* calls
}

func newByteWriter(w Sink, order binary.ByteOrder) *byteWriter {
	return &byteWriter{w: w, order: order}
}

func (w *byteWriter) write(p []byte) error {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	if err != nil {
		return ioErrorf(err, "writing %d bytes", len(p))
	}
	return nil
}

// Write satisfies io.Writer so a byteWriter can itself be handed to a
// compression adapter's Encode function while still tracking Pos().
func (w *byteWriter) Write(p []byte) (int, error) {
	if err := w.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *byteWriter) WriteUint8(v uint8) error  { return w.write([]byte{v}) }
func (w *byteWriter) WriteUint16(v uint16) error {
	var p [2]byte
	w.order.PutUint16(p[:], v)
	return w.write(p[:])
}
func (w *byteWriter) WriteUint32(v uint32) error {
	var p [4]byte
	w.order.PutUint32(p[:], v)
	return w.write(p[:])
}
func (w *byteWriter) WriteUint64(v uint64) error {
	var p [8]byte
	w.order.PutUint64(p[:], v)
	return w.write(p[:])
}
func (w *byteWriter) WriteBytes(p []byte) error { return w.write(p) }

// Pos returns the current append offset.
func (w *byteWriter) Pos() int64 { return w.pos }

// patchAt seeks to off, writes p, and restores the append cursor.
func (w *byteWriter) patchAt(off int64, p []byte) error {
	if _, err := w.w.Seek(off, io.SeekStart); err != nil {
		return ioErrorf(err, "seeking to patch offset %d", off)
	}
	n, err := w.w.Write(p)
	if err != nil {
		return ioErrorf(err, "patching %d bytes at offset %d", len(p), off)
	}
	if n != len(p) {
		return ioErrorf(io.ErrShortWrite, "patching at offset %d", off)
	}
	if _, err := w.w.Seek(w.pos, io.SeekStart); err != nil {
		return ioErrorf(err, "restoring write cursor to %d", w.pos)
	}
	return nil
}
