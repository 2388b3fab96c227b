package gotiffcore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildClassicIFD writes one classic (32-bit) IFD at the given offset
// into buf, with entries {tag:TShort, count:1, value} for each pair and
// the given next-IFD pointer. Returns nothing; callers read back via
// readDirectory directly for these low-level tests.
func buildClassicIFD(buf *bytes.Buffer, order binary.ByteOrder, tags []uint16, next uint32) {
	binary.Write(buf, order, uint16(len(tags)))
	for _, tag := range tags {
		binary.Write(buf, order, tag)
		binary.Write(buf, order, uint16(TShort))
		binary.Write(buf, order, uint32(1))
		binary.Write(buf, order, uint32(42)) // value, inline (2 bytes used of 4)
	}
	binary.Write(buf, order, next)
}

func TestReadDirectoryAscendingTags(t *testing.T) {
	var buf bytes.Buffer
	buildClassicIFD(&buf, binary.LittleEndian, []uint16{2, 5, 10}, 0)

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	dir, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.NoError(t, err)
	assert.Equal(t, 3, len(dir.Entries))
	assert.Equal(t, Tag(2), dir.Entries[0].Tag)
	assert.Equal(t, uint64(0), dir.NextOffset)

	// tag 5 is not in the registry, so its value bytes are kept raw
	v, ok := dir.Get(Tag(5))
	assert.True(t, ok)
	assert.Equal(t, TUndefined, v.Type)
	_, err = v.Uint(0)
	assert.Error(t, err)
	assert.Equal(t, []byte{42, 0}, v.Undefined)
}

func TestReadDirectoryRejectsNonAscendingTags(t *testing.T) {
	var buf bytes.Buffer
	buildClassicIFD(&buf, binary.LittleEndian, []uint16{10, 5}, 0)

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	_, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.Error(t, err)
	assert.Equal(t, ReasonTagsNotSorted, ReasonOf(err))
}

func TestReadDirectoryRejectsRepeatedTags(t *testing.T) {
	var buf bytes.Buffer
	buildClassicIFD(&buf, binary.LittleEndian, []uint16{5, 5}, 0)

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	_, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.Error(t, err)
	assert.Equal(t, ReasonTagsNotSorted, ReasonOf(err))
}

func TestDirectoryWalkerDetectsSelfLoop(t *testing.T) {
	var buf bytes.Buffer
	buildClassicIFD(&buf, binary.LittleEndian, []uint16{2}, 0) // next patched below
	raw := buf.Bytes()
	binary.LittleEndian.PutUint32(raw[len(raw)-4:], 0) // next points back to offset 0, itself

	br := newByteReader(bytes.NewReader(raw), binary.LittleEndian)
	w := newDirectoryWalker(br, DialectClassic, DefaultLimits())

	dir, err := w.next(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), dir.NextOffset)

	_, err = w.next(dir.NextOffset)
	assert.Error(t, err)
	assert.Equal(t, ReasonCycleInOffsets, ReasonOf(err))
}

func TestDirectoryWalkerDetectsBackEdgeInChain(t *testing.T) {
	// Two IFDs: offset 0 points to offset N, offset N points back to 0.
	var first bytes.Buffer
	buildClassicIFD(&first, binary.LittleEndian, []uint16{1}, 0) // placeholder next
	firstBytes := first.Bytes()
	secondOffset := uint32(len(firstBytes))

	var second bytes.Buffer
	buildClassicIFD(&second, binary.LittleEndian, []uint16{1}, 0) // points back to 0

	full := append(append([]byte(nil), firstBytes...), second.Bytes()...)
	binary.LittleEndian.PutUint32(full[len(firstBytes)-4:], secondOffset)

	br := newByteReader(bytes.NewReader(full), binary.LittleEndian)
	w := newDirectoryWalker(br, DialectClassic, DefaultLimits())

	dir1, err := w.next(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(secondOffset), dir1.NextOffset)

	dir2, err := w.next(dir1.NextOffset)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), dir2.NextOffset)

	_, err = w.next(dir2.NextOffset)
	assert.Error(t, err)
	assert.Equal(t, ReasonCycleInOffsets, ReasonOf(err))
}

func TestReadDirectoryAsciiValue(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(270)) // ImageDescription
	binary.Write(&buf, binary.LittleEndian, uint16(TAscii))
	binary.Write(&buf, binary.LittleEndian, uint32(3)) // "ab\0"
	buf.Write([]byte{'a', 'b', 0, 0})                  // value field is 4 bytes wide; 1 byte of padding after the 3-byte string
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // next

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	dir, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.NoError(t, err)

	v, ok := dir.Get(Tag(270))
	assert.True(t, ok)
	assert.Equal(t, "ab", v.Ascii)
}

func TestReadDirectoryRejectsTagTypeMismatch(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(TagImageWidth))
	binary.Write(&buf, binary.LittleEndian, uint16(TAscii)) // ImageWidth is registered as LONG
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	buf.Write([]byte{'4', 0, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	_, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.Error(t, err)
	assert.Equal(t, ReasonUnexpectedTagType, ReasonOf(err))
}

func TestReadDirectoryRejectsTagArityMismatch(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(TagSamplesPerPixel))
	binary.Write(&buf, binary.LittleEndian, uint16(TShort))
	binary.Write(&buf, binary.LittleEndian, uint32(2)) // SamplesPerPixel must be a single SHORT
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	_, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.Error(t, err)
	assert.Equal(t, ReasonUnexpectedTagArity, ReasonOf(err))
}

func TestReadDirectoryAcceptsFlexibleOffsetTagWidths(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(TagStripOffsets))
	binary.Write(&buf, binary.LittleEndian, uint16(TShort)) // small image: SHORT offsets are allowed
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, uint16(8))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	dir, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.NoError(t, err)

	v, ok := dir.Get(TagStripOffsets)
	assert.True(t, ok)
	u, err := v.Uint(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(8), u)
}

func TestReadDirectoryRejectsMissingNulTerminator(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(270))
	binary.Write(&buf, binary.LittleEndian, uint16(TAscii))
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	buf.Write([]byte{'a', 'b', 0, 0}) // value field is 4 bytes wide; only 2 bytes of "ab" are meaningful
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	br := newByteReader(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	_, err := readDirectory(br, DialectClassic, 0, DefaultLimits())
	assert.Error(t, err)
	assert.Equal(t, ReasonMissingNulTerminator, ReasonOf(err))
}
