package gotiffcore

import (
	"encoding/binary"
	"math"
)

// SampleBuffer is the typed output of the unpacker (spec.md §4.6): one
// of the slices below is populated depending on BitsPerSample/Format,
// mirroring the polymorphism-over-sample-type design note (§9):
// dispatched once per chunk via the Format/BitsPerSample pair, not per
// sample.
type SampleBuffer struct {
	Format        int // SampleFormatUnsigned/Signed/IEEEFP/Void
	BitsPerSample int

	Uint8   []uint8
	Int8    []int8
	Uint16  []uint16
	Int16   []int16
	Uint32  []uint32
	Int32   []int32
	Uint64  []uint64
	Int64   []int64
	Float32 []float32
	Float64 []float64
	Void    []byte // raw bytes, one byte per sample, for SampleFormatVoid
}

// Len reports the number of samples currently stored.
func (b *SampleBuffer) Len() int {
	switch {
	case b.Uint8 != nil:
		return len(b.Uint8)
	case b.Int8 != nil:
		return len(b.Int8)
	case b.Uint16 != nil:
		return len(b.Uint16)
	case b.Int16 != nil:
		return len(b.Int16)
	case b.Uint32 != nil:
		return len(b.Uint32)
	case b.Int32 != nil:
		return len(b.Int32)
	case b.Uint64 != nil:
		return len(b.Uint64)
	case b.Int64 != nil:
		return len(b.Int64)
	case b.Float32 != nil:
		return len(b.Float32)
	case b.Float64 != nil:
		return len(b.Float64)
	default:
		return len(b.Void)
	}
}

// NewSampleBuffer allocates a buffer sized for n samples of the given
// format/bit depth. Supported widths are 1, 2, 4, 8, 16, 32, 64 bits,
// per spec.md §4.6; sub-byte widths are stored one byte per sample
// (the caller-facing representation), with packing only happening on
// the wire.
func NewSampleBuffer(format int, bitsPerSample, n int) (*SampleBuffer, error) {
	b := &SampleBuffer{Format: format, BitsPerSample: bitsPerSample}
	switch {
	case format == SampleFormatVoid:
		b.Void = make([]byte, n)
	case bitsPerSample <= 8 && format == SampleFormatUnsigned:
		b.Uint8 = make([]uint8, n)
	case bitsPerSample <= 8 && format == SampleFormatSigned:
		b.Int8 = make([]int8, n)
	case bitsPerSample == 16 && format == SampleFormatUnsigned:
		b.Uint16 = make([]uint16, n)
	case bitsPerSample == 16 && format == SampleFormatSigned:
		b.Int16 = make([]int16, n)
	case bitsPerSample == 32 && format == SampleFormatUnsigned:
		b.Uint32 = make([]uint32, n)
	case bitsPerSample == 32 && format == SampleFormatSigned:
		b.Int32 = make([]int32, n)
	case bitsPerSample == 64 && format == SampleFormatUnsigned:
		b.Uint64 = make([]uint64, n)
	case bitsPerSample == 64 && format == SampleFormatSigned:
		b.Int64 = make([]int64, n)
	case bitsPerSample == 32 && format == SampleFormatIEEEFP:
		b.Float32 = make([]float32, n)
	case bitsPerSample == 64 && format == SampleFormatIEEEFP:
		b.Float64 = make([]float64, n)
	default:
		return nil, unsupportedErrorf("", "sample format %d with %d-bit samples", format, bitsPerSample)
	}
	return b, nil
}

// UnpackChunk decodes the uncompressed, predictor-reversed byte stream
// of one chunk into dst starting at sample offset dstOffset. width/
// height describe the rows as stored in the chunk (for a tile, its full
// padded extent); samplesPerPixel and
// bitsPerSample/format describe the per-sample layout.
//
// Bit depths below 8 are packed MSB-first within each byte; each
// scanline starts on a byte boundary (spec.md §4.6). Bit depths >= 8
// are stored little- or big-endian per the file's byte order.
func UnpackChunk(dst *SampleBuffer, dstOffset int, raw []byte, width, height, samplesPerPixel, bitsPerSample int, order binary.ByteOrder) error {
	samplesPerRow := width * samplesPerPixel
	rowStride := packedRowStride(samplesPerRow, bitsPerSample)

	need, err := mulChecked(int64(rowStride), int64(height), "chunk byte stream")
	if err != nil {
		return err
	}
	if int64(len(raw)) < need {
		return formatErrorf(ReasonTruncatedValue, "chunk byte stream is %d bytes, need %d", len(raw), need)
	}

	idx := dstOffset
	for y := 0; y < height; y++ {
		row := raw[y*rowStride : y*rowStride+rowStride]
		if err := unpackRow(dst, idx, row, samplesPerRow, bitsPerSample, order); err != nil {
			return err
		}
		idx += samplesPerRow
	}
	return nil
}

// packedRowStride returns the byte-aligned stride of a row holding n
// samples of bitsPerSample bits each.
func packedRowStride(n, bitsPerSample int) int {
	if bitsPerSample >= 8 {
		return n * (bitsPerSample / 8)
	}
	bits := n * bitsPerSample
	return (bits + 7) / 8
}

func unpackRow(dst *SampleBuffer, idx int, row []byte, n, bitsPerSample int, order binary.ByteOrder) error {
	switch {
	case bitsPerSample < 8:
		return unpackSubByteRow(dst, idx, row, n, bitsPerSample)
	case bitsPerSample == 8:
		return unpackByteRow(dst, idx, row, n)
	case bitsPerSample == 16:
		return unpackWideRow(dst, idx, row, n, 2, order)
	case bitsPerSample == 32:
		return unpackWideRow(dst, idx, row, n, 4, order)
	case bitsPerSample == 64:
		return unpackWideRow(dst, idx, row, n, 8, order)
	default:
		return unsupportedErrorf("", "bit depth %d", bitsPerSample)
	}
}

func unpackSubByteRow(dst *SampleBuffer, idx int, row []byte, n, bitsPerSample int) error {
	mask := uint8(1<<uint(bitsPerSample)) - 1
	bitPos := 0
	for i := 0; i < n; i++ {
		byteIdx := bitPos / 8
		shift := uint(8 - bitsPerSample - (bitPos % 8))
		v := (row[byteIdx] >> shift) & mask
		if err := storeUnsigned(dst, idx+i, uint64(v)); err != nil {
			return err
		}
		bitPos += bitsPerSample
	}
	return nil
}

func unpackByteRow(dst *SampleBuffer, idx int, row []byte, n int) error {
	for i := 0; i < n; i++ {
		if dst.Format == SampleFormatSigned {
			if err := storeSigned(dst, idx+i, int64(int8(row[i]))); err != nil {
				return err
			}
			continue
		}
		if dst.Format == SampleFormatVoid {
			dst.Void[idx+i] = row[i]
			continue
		}
		if err := storeUnsigned(dst, idx+i, uint64(row[i])); err != nil {
			return err
		}
	}
	return nil
}

func unpackWideRow(dst *SampleBuffer, idx int, row []byte, n, width int, order binary.ByteOrder) error {
	for i := 0; i < n; i++ {
		p := row[i*width : i*width+width]
		switch width {
		case 2:
			v := order.Uint16(p)
			if dst.Format == SampleFormatSigned {
				if err := storeSigned(dst, idx+i, int64(int16(v))); err != nil {
					return err
				}
			} else if err := storeUnsigned(dst, idx+i, uint64(v)); err != nil {
				return err
			}
		case 4:
			v := order.Uint32(p)
			switch dst.Format {
			case SampleFormatSigned:
				if err := storeSigned(dst, idx+i, int64(int32(v))); err != nil {
					return err
				}
			case SampleFormatIEEEFP:
				dst.Float32[idx+i] = math.Float32frombits(v)
			default:
				if err := storeUnsigned(dst, idx+i, uint64(v)); err != nil {
					return err
				}
			}
		case 8:
			v := order.Uint64(p)
			switch dst.Format {
			case SampleFormatSigned:
				if err := storeSigned(dst, idx+i, int64(v)); err != nil {
					return err
				}
			case SampleFormatIEEEFP:
				dst.Float64[idx+i] = math.Float64frombits(v)
			default:
				if err := storeUnsigned(dst, idx+i, uint64(v)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func storeUnsigned(dst *SampleBuffer, i int, v uint64) error {
	switch dst.BitsPerSample {
	case 1, 2, 4, 8:
		dst.Uint8[i] = uint8(v)
	case 16:
		dst.Uint16[i] = uint16(v)
	case 32:
		dst.Uint32[i] = uint32(v)
	case 64:
		dst.Uint64[i] = v
	default:
		return unsupportedErrorf("", "unsigned sample width %d", dst.BitsPerSample)
	}
	return nil
}

func storeSigned(dst *SampleBuffer, i int, v int64) error {
	switch dst.BitsPerSample {
	case 8:
		dst.Int8[i] = int8(v)
	case 16:
		dst.Int16[i] = int16(v)
	case 32:
		dst.Int32[i] = int32(v)
	case 64:
		dst.Int64[i] = v
	default:
		return unsupportedErrorf("", "signed sample width %d", dst.BitsPerSample)
	}
	return nil
}

// PackChunk is the encode-side inverse of UnpackChunk: it serializes
// width*height*samplesPerPixel samples starting at srcOffset into a
// byte-aligned, bit-packed-if-needed row stream.
func PackChunk(src *SampleBuffer, srcOffset int, width, height, samplesPerPixel, bitsPerSample int, order binary.ByteOrder) ([]byte, error) {
	samplesPerRow := width * samplesPerPixel
	rowStride := packedRowStride(samplesPerRow, bitsPerSample)
	out := make([]byte, rowStride*height)

	idx := srcOffset
	for y := 0; y < height; y++ {
		row := out[y*rowStride : y*rowStride+rowStride]
		if err := packRow(src, idx, row, samplesPerRow, bitsPerSample, order); err != nil {
			return nil, err
		}
		idx += samplesPerRow
	}
	return out, nil
}

func packRow(src *SampleBuffer, idx int, row []byte, n, bitsPerSample int, order binary.ByteOrder) error {
	for i := 0; i < n; i++ {
		switch {
		case bitsPerSample < 8:
			v, err := loadUnsigned(src, idx+i)
			if err != nil {
				return err
			}
			bitPos := i * bitsPerSample
			byteIdx := bitPos / 8
			shift := uint(8 - bitsPerSample - (bitPos % 8))
			row[byteIdx] |= uint8(v) << shift
		case bitsPerSample == 8:
			if src.Format == SampleFormatVoid {
				row[i] = src.Void[idx+i]
			} else if src.Format == SampleFormatSigned {
				row[i] = byte(src.Int8[idx+i])
			} else {
				row[i] = src.Uint8[idx+i]
			}
		case bitsPerSample == 16:
			v, err := rawWidened(src, idx+i, 2)
			if err != nil {
				return err
			}
			order.PutUint16(row[i*2:], uint16(v))
		case bitsPerSample == 32:
			if src.Format == SampleFormatIEEEFP {
				order.PutUint32(row[i*4:], math.Float32bits(src.Float32[idx+i]))
			} else {
				v, err := rawWidened(src, idx+i, 4)
				if err != nil {
					return err
				}
				order.PutUint32(row[i*4:], uint32(v))
			}
		case bitsPerSample == 64:
			if src.Format == SampleFormatIEEEFP {
				order.PutUint64(row[i*8:], math.Float64bits(src.Float64[idx+i]))
			} else {
				v, err := rawWidened(src, idx+i, 8)
				if err != nil {
					return err
				}
				order.PutUint64(row[i*8:], v)
			}
		default:
			return unsupportedErrorf("", "bit depth %d", bitsPerSample)
		}
	}
	return nil
}

func loadUnsigned(src *SampleBuffer, i int) (uint64, error) {
	switch src.BitsPerSample {
	case 1, 2, 4, 8:
		return uint64(src.Uint8[i]), nil
	default:
		return 0, unsupportedErrorf("", "unsigned sample width %d", src.BitsPerSample)
	}
}

func rawWidened(src *SampleBuffer, i, width int) (uint64, error) {
	if src.Format == SampleFormatSigned {
		switch width {
		case 2:
			return uint64(uint16(src.Int16[i])), nil
		case 4:
			return uint64(uint32(src.Int32[i])), nil
		case 8:
			return uint64(src.Int64[i]), nil
		}
	}
	switch width {
	case 2:
		return uint64(src.Uint16[i]), nil
	case 4:
		return uint64(src.Uint32[i]), nil
	case 8:
		return src.Uint64[i], nil
	}
	return 0, unsupportedErrorf("", "sample width %d", width)
}

// InvertWhiteIsZero applies the WhiteIsZero photometric policy in
// place over samples [offset, offset+n): bitwise complement for
// integers, max-v for unsigned-of-width-w, per spec.md §4.6. It is
// defined only for unsigned and IEEE-float samples; signed formats
// return Unsupported(UnsupportedInterpretation), matching the Open
// Question decision recorded in SPEC_FULL.md.
func InvertWhiteIsZero(buf *SampleBuffer, offset, n int) error {
	switch buf.Format {
	case SampleFormatUnsigned:
		switch buf.BitsPerSample {
		case 1, 2, 4, 8:
			max := uint8((1 << uint(maxBits(buf.BitsPerSample))) - 1)
			for i := offset; i < offset+n; i++ {
				buf.Uint8[i] = max - buf.Uint8[i]
			}
		case 16:
			for i := offset; i < offset+n; i++ {
				buf.Uint16[i] = math.MaxUint16 - buf.Uint16[i]
			}
		case 32:
			for i := offset; i < offset+n; i++ {
				buf.Uint32[i] = math.MaxUint32 - buf.Uint32[i]
			}
		case 64:
			for i := offset; i < offset+n; i++ {
				buf.Uint64[i] = math.MaxUint64 - buf.Uint64[i]
			}
		}
		return nil
	case SampleFormatIEEEFP:
		switch buf.BitsPerSample {
		case 32:
			for i := offset; i < offset+n; i++ {
				buf.Float32[i] = 1 - buf.Float32[i]
			}
		case 64:
			for i := offset; i < offset+n; i++ {
				buf.Float64[i] = 1 - buf.Float64[i]
			}
		}
		return nil
	default:
		return unsupportedErrorf(ReasonUnsupportedInterpretation, "WhiteIsZero inversion on sample format %d", buf.Format)
	}
}

// maxBits returns the declared bit width actually used within the byte
// for sub-8-bit depths (1, 2, 4, or 8).
func maxBits(bitsPerSample int) int {
	if bitsPerSample == 0 {
		return 8
	}
	return bitsPerSample
}
