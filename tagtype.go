package gotiffcore

import "fmt"

// FieldType is the TIFF wire type code of an IFD entry, per spec.md §3.
type FieldType uint16

const (
	TByte      FieldType = 1
	TAscii     FieldType = 2
	TShort     FieldType = 3
	TLong      FieldType = 4
	TRational  FieldType = 5
	TSByte     FieldType = 6
	TUndefined FieldType = 7
	TSShort    FieldType = 8
	TSLong     FieldType = 9
	TSRational FieldType = 10
	TFloat     FieldType = 11
	TDouble    FieldType = 12
	TIfd       FieldType = 13 // TIFF Supplement 1
	TLong8     FieldType = 16 // BigTIFF
	TSLong8    FieldType = 17 // BigTIFF
	TIfd8      FieldType = 18 // BigTIFF

	// tPrivateExtension is a non-standard type code (129) seen in some
	// vendor MakerNote dialects; this package never interprets it, only
	// preserves it as Undefined.
	tPrivateExtension FieldType = 129
)

// typeByteSize is the on-disk size of a single value of the given type.
// Zero means unknown/variable (Ascii and Undefined are measured in
// whole bytes directly, not per-value).
var typeByteSize = map[FieldType]uint64{
	TByte:      1,
	TAscii:     1,
	TShort:     2,
	TLong:      4,
	TRational:  8,
	TSByte:     1,
	TUndefined: 1,
	TSShort:    2,
	TSLong:     4,
	TSRational: 8,
	TFloat:     4,
	TDouble:    8,
	TIfd:       4,
	TLong8:     8,
	TSLong8:    8,
	TIfd8:      8,
}

// isKnownType reports whether t is a type code this package recognizes
// on the wire (spec.md §4.2: "known type codes in 1..=18 or 129").
func isKnownType(t FieldType) bool {
	if t >= 1 && t <= 18 {
		return true
	}
	return t == tPrivateExtension
}

// Rational is an unsigned TIFF RATIONAL: Numerator/Denominator.
type Rational struct {
	Numerator, Denominator uint32
}

func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// SRational is a signed TIFF SRATIONAL.
type SRational struct {
	Numerator, Denominator int32
}

func (r SRational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// Value is a tagged union over every TIFF primitive type, scalar or
// list (spec.md §3 TagValue). Exactly one of the typed slices below is
// populated, selected by Type; Count == len of that slice (or, for
// Ascii, len(Ascii), which excludes the trailing NULs read from disk).
type Value struct {
	Type FieldType

	Bytes      []uint8
	SBytes     []int8
	Shorts     []uint16
	SShorts    []int16
	Longs      []uint32
	SLongs     []int32
	Long8s     []uint64
	SLong8s    []int64
	Rationals  []Rational
	SRationals []SRational
	Floats     []float32
	Doubles    []float64
	Ifds       []uint32
	Ifd8s      []uint64
	Undefined  []byte
	Ascii      string
}

// Count returns the entry's declared value count.
func (v Value) Count() int {
	switch v.Type {
	case TByte:
		return len(v.Bytes)
	case TSByte:
		return len(v.SBytes)
	case TShort:
		return len(v.Shorts)
	case TSShort:
		return len(v.SShorts)
	case TLong:
		return len(v.Longs)
	case TSLong:
		return len(v.SLongs)
	case TLong8:
		return len(v.Long8s)
	case TSLong8:
		return len(v.SLong8s)
	case TRational:
		return len(v.Rationals)
	case TSRational:
		return len(v.SRationals)
	case TFloat:
		return len(v.Floats)
	case TDouble:
		return len(v.Doubles)
	case TIfd:
		return len(v.Ifds)
	case TIfd8:
		return len(v.Ifd8s)
	case TAscii:
		return len(v.Ascii)
	default:
		return len(v.Undefined)
	}
}

// Uint returns the i-th value widened to uint64, for any integral or
// IFD-pointer type. It returns an error for Ascii/Undefined/float types.
func (v Value) Uint(i int) (uint64, error) {
	switch v.Type {
	case TByte:
		return uint64(v.Bytes[i]), nil
	case TShort:
		return uint64(v.Shorts[i]), nil
	case TLong:
		return uint64(v.Longs[i]), nil
	case TLong8:
		return v.Long8s[i], nil
	case TIfd:
		return uint64(v.Ifds[i]), nil
	case TIfd8:
		return v.Ifd8s[i], nil
	case TSByte:
		return uint64(v.SBytes[i]), nil
	case TSShort:
		return uint64(v.SShorts[i]), nil
	case TSLong:
		return uint64(v.SLongs[i]), nil
	case TSLong8:
		return uint64(v.SLong8s[i]), nil
	default:
		return 0, usageErrorf("tag value of type %d has no integral representation", v.Type)
	}
}

// Float returns the i-th value widened to float64, covering float,
// double and both rational kinds.
func (v Value) Float(i int) (float64, error) {
	switch v.Type {
	case TFloat:
		return float64(v.Floats[i]), nil
	case TDouble:
		return v.Doubles[i], nil
	case TRational:
		return v.Rationals[i].Float64(), nil
	case TSRational:
		return v.SRationals[i].Float64(), nil
	default:
		u, err := v.Uint(i)
		return float64(u), err
	}
}

// FirstUint is a convenience wrapper returning the first element, or 0
// if the value is empty (matches the teacher's idf.firstVal).
func (v Value) FirstUint() uint64 {
	if v.Count() == 0 {
		return 0
	}
	u, _ := v.Uint(0)
	return u
}

func (v Value) String() string {
	if v.Type == TAscii {
		return v.Ascii
	}
	return fmt.Sprintf("%v(%d values)", v.Type, v.Count())
}

// uintSliceValue builds a Value holding uint32s in the given type, for
// tags whose type may legally be BYTE, SHORT or LONG.
func uintSliceValue(t FieldType, vals []uint32) Value {
	switch t {
	case TByte:
		b := make([]uint8, len(vals))
		for i, x := range vals {
			b[i] = uint8(x)
		}
		return Value{Type: TByte, Bytes: b}
	case TShort:
		s := make([]uint16, len(vals))
		for i, x := range vals {
			s[i] = uint16(x)
		}
		return Value{Type: TShort, Shorts: s}
	default:
		return Value{Type: TLong, Longs: vals}
	}
}
