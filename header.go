package gotiffcore

import "encoding/binary"

// Dialect distinguishes classic 32-bit TIFF from 64-bit BigTIFF. The two
// share every algorithm above the offset-width layer; only the widths
// below differ, per the design note in spec.md §9 ("BigTIFF vs
// classic... parameterize the reader/writer by a small record").
type Dialect int

const (
	DialectClassic Dialect = iota
	DialectBig
)

// widths carries the per-dialect sizes needed to walk an IFD: how wide
// the entry count field is, how wide a single entry's count/value-or-
// offset fields are, and the resulting total entry stride.
type widths struct {
	offsetWidth int // width in bytes of a next-IFD / strip offset
	countWidth  int // width in bytes of the IFD's entry-count field
	valueWidth  int // width in bytes of one entry's count field and of its value-or-offset field
	entryStride int // total bytes per IFD entry: 2(tag)+2(type)+valueWidth+valueWidth
}

func (d Dialect) widths() widths {
	if d == DialectBig {
		return widths{offsetWidth: 8, countWidth: 8, valueWidth: 8, entryStride: 20}
	}
	return widths{offsetWidth: 4, countWidth: 2, valueWidth: 4, entryStride: 12}
}

const (
	leMagicClassic = "II\x2a\x00"
	beMagicClassic = "MM\x00\x2a"
	leMagicBig     = "II\x2b\x00"
	beMagicBig     = "MM\x00\x2b"
)

// parseHeader reads the 8 (classic) or 16 (BigTIFF) byte file header and
// returns the byte order, dialect and absolute offset of the first IFD.
func parseHeader(src Source) (binary.ByteOrder, Dialect, uint64, error) {
	p := make([]byte, 4)
	n, err := src.ReadAt(p, 0)
	if err != nil || n != 4 {
		return nil, 0, 0, formatErrorf(ReasonUnexpectedEOF, "reading file header")
	}

	var order binary.ByteOrder
	var dialect Dialect
	switch string(p) {
	case leMagicClassic:
		order, dialect = binary.LittleEndian, DialectClassic
	case beMagicClassic:
		order, dialect = binary.BigEndian, DialectClassic
	case leMagicBig:
		order, dialect = binary.LittleEndian, DialectBig
	case beMagicBig:
		order, dialect = binary.BigEndian, DialectBig
	default:
		if p[0] != p[1] || (p[0] != 'I' && p[0] != 'M') {
			return nil, 0, 0, formatErrorf(ReasonBadByteOrder, "unrecognized byte-order marker %q", p[0:2])
		}
		return nil, 0, 0, formatErrorf(ReasonBadMagic, "unrecognized magic number %q", p[2:4])
	}

	br := newByteReader(src, order)

	if dialect == DialectClassic {
		firstIFD, err := br.Uint32(4)
		if err != nil {
			return nil, 0, 0, err
		}
		return order, dialect, uint64(firstIFD), nil
	}

	offsetSize, err := br.Uint16(4)
	if err != nil {
		return nil, 0, 0, err
	}
	if offsetSize != 8 {
		return nil, 0, 0, formatErrorf(ReasonBadBigTiffReserved, "BigTIFF offset size must be 8, got %d", offsetSize)
	}
	reserved, err := br.Uint16(6)
	if err != nil {
		return nil, 0, 0, err
	}
	if reserved != 0 {
		return nil, 0, 0, formatErrorf(ReasonBadBigTiffReserved, "BigTIFF reserved field must be 0, got %d", reserved)
	}
	firstIFD, err := br.Uint64(8)
	if err != nil {
		return nil, 0, 0, err
	}
	return order, dialect, firstIFD, nil
}

// writeHeader emits the file header for the given dialect/byte order and
// returns the offset at which the first IFD pointer field begins (so the
// caller can patch it in once the first IFD's position is known).
func writeHeader(w *byteWriter, dialect Dialect, order binary.ByteOrder) (firstIFDPtrOffset int64, err error) {
	var magic string
	isLE := order == binary.LittleEndian
	switch {
	case dialect == DialectClassic && isLE:
		magic = leMagicClassic
	case dialect == DialectClassic && !isLE:
		magic = beMagicClassic
	case dialect == DialectBig && isLE:
		magic = leMagicBig
	default:
		magic = beMagicBig
	}
	if err := w.WriteBytes([]byte(magic)); err != nil {
		return 0, err
	}

	if dialect == DialectClassic {
		ptr := w.Pos()
		if err := w.WriteUint32(0); err != nil {
			return 0, err
		}
		return ptr, nil
	}

	if err := w.WriteUint16(8); err != nil { // offset size
		return 0, err
	}
	if err := w.WriteUint16(0); err != nil { // reserved
		return 0, err
	}
	ptr := w.Pos()
	if err := w.WriteUint64(0); err != nil {
		return 0, err
	}
	return ptr, nil
}
