package gotiffcore

import (
	"encoding/binary"
	"math"
	"sort"
)

// ifdValue is one already wire-encoded IFD entry, ready to be written or
// relocated to the pointer area, per the "Pointer area" layout the
// golang.org/x/image/tiff writer reference uses and this encoder adapts
// for BigTIFF-width offsets.
type ifdValue struct {
	tag   Tag
	typ   FieldType
	raw   []byte
	count uint64
}

// encodingImage tracks one image's staged tags and partially-written
// strip data between NewImage and Finish, per the per-image state
// machine spec.md §4.8 describes: {Started → TagsStaged → DataWritten
// → Finalized}.
type encodingImage struct {
	width, height   int
	samplesPerPixel int
	bitsPerSample   int
	photometric     int
	compression     int
	predictor       int
	sampleFormat    int
	rowsPerStrip    int

	tags []ifdValue

	pendingRows     *SampleBuffer
	pendingRowCount int
	rowsWritten     int

	stripOffsets    []uint64
	stripByteCounts []uint64

	dataWritten bool // true once the first row has been written; locks tag staging
}

// Encoder builds a TIFF/BigTIFF byte stream image by image: stage tags,
// write rows (flushed into strips automatically), call Finish, repeat
// for additional pages, per spec.md §4.8.
type Encoder struct {
	sink    Sink
	bw      *byteWriter
	order   binary.ByteOrder
	dialect Dialect
	widths  widths
	limits  Limits

	// lastIFDNextPtrOffset is the file offset of the next-IFD pointer
	// field that must be patched with the offset of the IFD about to be
	// written. It starts as the header's own first-IFD field and, after
	// each Finish, becomes that image's own next-pointer field.
	lastIFDNextPtrOffset int64

	cur *encodingImage
}

// NewEncoder writes the file header for dialect/order and returns an
// Encoder positioned to receive its first image.
func NewEncoder(sink Sink, dialect Dialect, order binary.ByteOrder) (*Encoder, error) {
	bw := newByteWriter(sink, order)
	firstIFDPtrOffset, err := writeHeader(bw, dialect, order)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		sink:                  sink,
		bw:                    bw,
		order:                 order,
		dialect:               dialect,
		widths:                dialect.widths(),
		limits:                DefaultLimits(),
		lastIFDNextPtrOffset:  firstIFDPtrOffset,
	}, nil
}

// NewImage begins staging a new image of the given pixel layout. A
// prior image must have been finished with Finish first.
func (e *Encoder) NewImage(width, height, samplesPerPixel, bitsPerSample, sampleFormat, photometric int) error {
	if e.cur != nil {
		return usageErrorf("NewImage called before the previous image's Finish")
	}
	if width <= 0 || height <= 0 {
		return usageErrorf("zero-sized image (%dx%d)", width, height)
	}
	e.cur = &encodingImage{
		width:           width,
		height:          height,
		samplesPerPixel: samplesPerPixel,
		bitsPerSample:   bitsPerSample,
		photometric:     photometric,
		compression:     CompressionNone,
		predictor:       PredictorNone,
		sampleFormat:    sampleFormat,
		rowsPerStrip:    height,
	}
	buf, err := NewSampleBuffer(sampleFormat, bitsPerSample, width*samplesPerPixel*e.cur.rowsPerStrip)
	if err != nil {
		return err
	}
	e.cur.pendingRows = buf
	return nil
}

// WithCompression selects the compression codec for the current image.
// Must be called before any row is written.
func (e *Encoder) WithCompression(code int) error {
	if err := e.requireStaging("WithCompression"); err != nil {
		return err
	}
	e.cur.compression = code
	return nil
}

// WithPredictor selects the predictor for the current image. Must be
// called before any row is written.
func (e *Encoder) WithPredictor(predictor int) error {
	if err := e.requireStaging("WithPredictor"); err != nil {
		return err
	}
	e.cur.predictor = predictor
	return nil
}

// RowsPerStrip overrides the default of one strip per image (n must be
// positive; n need not divide the image height, so the final strip may
// be short). Must be called before any row is written.
func (e *Encoder) RowsPerStrip(n int) error {
	if err := e.requireStaging("RowsPerStrip"); err != nil {
		return err
	}
	if n <= 0 {
		return usageErrorf("inconsistent RowsPerStrip: %d", n)
	}
	e.cur.rowsPerStrip = n
	buf, err := NewSampleBuffer(e.cur.sampleFormat, e.cur.bitsPerSample, e.cur.width*e.cur.samplesPerPixel*n)
	if err != nil {
		return err
	}
	e.cur.pendingRows = buf
	return nil
}

// WriteTag stages a tag to be written into the current image's IFD.
// Must be invoked before any row is written; writing one of the tags
// this encoder derives automatically (ImageWidth, ImageLength, BitsPerSample,
// Compression, PhotometricInterpretation, SamplesPerPixel, RowsPerStrip,
// StripOffsets, StripByteCounts, PlanarConfiguration, Predictor,
// SampleFormat) is rejected since Finish would conflict with it.
func (e *Encoder) WriteTag(tag Tag, value Value) error {
	if err := e.requireStaging("WriteTag"); err != nil {
		return err
	}
	if isAutoTag(tag) {
		return usageErrorf("tag %s is derived automatically and cannot be staged", TagName(tag))
	}
	typ, raw, count, err := encodeValueBytes(e.order, value)
	if err != nil {
		return err
	}
	e.cur.tags = append(e.cur.tags, ifdValue{tag: tag, typ: typ, raw: raw, count: count})
	return nil
}

func isAutoTag(tag Tag) bool {
	switch tag {
	case TagImageWidth, TagImageLength, TagBitsPerSample, TagCompression,
		TagPhotometricInterpretation, TagSamplesPerPixel, TagRowsPerStrip,
		TagStripOffsets, TagStripByteCounts, TagPlanarConfiguration,
		TagPredictor, TagSampleFormat:
		return true
	default:
		return false
	}
}

func (e *Encoder) requireStaging(op string) error {
	if e.cur == nil {
		return usageErrorf("%s called with no image in progress", op)
	}
	if e.cur.dataWritten {
		return usageErrorf("%s called after image data has been written", op)
	}
	return nil
}

// WriteRow writes one scanline of width*samplesPerPixel samples,
// automatically flushing a strip once RowsPerStrip rows have
// accumulated (or the image's final row is written).
func (e *Encoder) WriteRow(row *SampleBuffer) error {
	if e.cur == nil {
		return usageErrorf("WriteRow called with no image in progress")
	}
	img := e.cur
	want := img.width * img.samplesPerPixel
	if row.Len() != want {
		return usageErrorf("row has %d samples, expected %d", row.Len(), want)
	}
	if img.rowsWritten >= img.height {
		return usageErrorf("WriteRow called after all %d rows were written", img.height)
	}

	img.dataWritten = true
	dstOff := img.pendingRowCount * want
	if err := copySamples(img.pendingRows, dstOff, row, 0, want); err != nil {
		return err
	}
	img.pendingRowCount++
	img.rowsWritten++

	if img.pendingRowCount == img.rowsPerStrip || img.rowsWritten == img.height {
		return e.flushStrip(img)
	}
	return nil
}

// flushStrip packs, predicts and compresses the currently buffered rows
// into one strip, writes it to the sink, and records its offset and
// byte count for the StripOffsets/StripByteCounts tags.
func (e *Encoder) flushStrip(img *encodingImage) error {
	if img.pendingRowCount == 0 {
		return nil
	}

	rowStride := packedRowStride(img.width*img.samplesPerPixel, img.bitsPerSample)
	raw, err := PackChunk(img.pendingRows, 0, img.width, img.pendingRowCount, img.samplesPerPixel, img.bitsPerSample, e.order)
	if err != nil {
		return err
	}

	switch img.predictor {
	case PredictorHorizontal:
		if err := applyHorizontalPredictorForward(raw, img.pendingRowCount, rowStride, img.width, img.samplesPerPixel, img.bitsPerSample, e.order); err != nil {
			return err
		}
	case PredictorFloatingPoint:
		if err := applyFloatingPointPredictorForward(raw, img.pendingRowCount, rowStride, img.width, img.samplesPerPixel, img.bitsPerSample); err != nil {
			return err
		}
	case PredictorNone:
		// no-op
	default:
		return unsupportedErrorf("", "predictor %d", img.predictor)
	}

	stripOffset := e.bw.Pos()
	written, err := encodeChunk(uint16(img.compression), e.bw, raw)
	if err != nil {
		return err
	}

	img.stripOffsets = append(img.stripOffsets, uint64(stripOffset))
	img.stripByteCounts = append(img.stripByteCounts, uint64(len(written)))
	img.pendingRowCount = 0
	return nil
}

// Finish writes the current image's IFD (auto-derived tags plus any
// staged via WriteTag), links it from the previous image's (or the
// header's) next-IFD pointer, and prepares to link the next image in
// turn. Per spec.md §4.8, the final image's next-pointer is left at 0
// by construction — no separate finalize-the-file step is required.
func (e *Encoder) Finish() error {
	if e.cur == nil {
		return usageErrorf("Finish called with no image in progress")
	}
	img := e.cur

	if err := e.flushStrip(img); err != nil {
		return err
	}
	if img.rowsWritten != img.height {
		return usageErrorf("image finished with %d of %d rows written", img.rowsWritten, img.height)
	}

	entries := e.autoTags(img)
	entries = append(entries, img.tags...)

	ifdOffset, nextPtrOffset, err := e.writeIFD(entries)
	if err != nil {
		return err
	}

	if err := e.patchOffsetField(e.lastIFDNextPtrOffset, uint64(ifdOffset)); err != nil {
		return err
	}
	e.lastIFDNextPtrOffset = nextPtrOffset
	e.cur = nil
	return nil
}

// offsetFieldType is the wire type used for StripOffsets/StripByteCounts:
// BigTIFF uses 8-byte LONG8 entries so offsets beyond 4GiB are
// representable; classic TIFF uses 4-byte LONG, matching spec.md §6.
func (e *Encoder) offsetFieldType() FieldType {
	if e.dialect == DialectBig {
		return TLong8
	}
	return TLong
}

func (e *Encoder) autoTags(img *encodingImage) []ifdValue {
	order := e.order
	u32 := func(v uint32) []byte { b := make([]byte, 4); order.PutUint32(b, v); return b }
	u16 := func(v uint16) []byte { b := make([]byte, 2); order.PutUint16(b, v); return b }
	u16n := func(v uint16, n int) []byte {
		b := make([]byte, 2*n)
		for i := 0; i < n; i++ {
			order.PutUint16(b[2*i:], v)
		}
		return b
	}

	offType := e.offsetFieldType()
	offWidth := int(typeByteSize[offType])
	offsets := make([]byte, len(img.stripOffsets)*offWidth)
	counts := make([]byte, len(img.stripByteCounts)*offWidth)
	for i, v := range img.stripOffsets {
		putUintN(order, offsets[i*offWidth:(i+1)*offWidth], v)
	}
	for i, v := range img.stripByteCounts {
		putUintN(order, counts[i*offWidth:(i+1)*offWidth], v)
	}

	entries := []ifdValue{
		{TagImageWidth, TLong, u32(uint32(img.width)), 1},
		{TagImageLength, TLong, u32(uint32(img.height)), 1},
		{TagBitsPerSample, TShort, u16n(uint16(img.bitsPerSample), img.samplesPerPixel), uint64(img.samplesPerPixel)},
		{TagCompression, TShort, u16(uint16(img.compression)), 1},
		{TagPhotometricInterpretation, TShort, u16(uint16(img.photometric)), 1},
		{TagSamplesPerPixel, TShort, u16(uint16(img.samplesPerPixel)), 1},
		{TagRowsPerStrip, TLong, u32(uint32(img.rowsPerStrip)), 1},
		{TagStripOffsets, offType, offsets, uint64(len(img.stripOffsets))},
		{TagStripByteCounts, offType, counts, uint64(len(img.stripByteCounts))},
		{TagPlanarConfiguration, TShort, u16(PlanarChunky), 1},
	}
	if img.predictor != PredictorNone {
		entries = append(entries, ifdValue{TagPredictor, TShort, u16(uint16(img.predictor)), 1})
	}
	if img.sampleFormat != SampleFormatUnsigned {
		entries = append(entries, ifdValue{TagSampleFormat, TShort, u16n(uint16(img.sampleFormat), img.samplesPerPixel), uint64(img.samplesPerPixel)})
	}
	return entries
}

// writeIFD lays out entries in ascending tag order, inlining values that
// fit the value-field width and relocating the rest to a trailing
// pointer area, mirroring the golang.org/x/image/tiff writer's "parea"
// approach generalized to BigTIFF's wider offset fields.
func (e *Encoder) writeIFD(entries []ifdValue) (ifdOffset, nextPtrOffset int64, err error) {
	w := e.widths
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOffset = e.bw.Pos()
	headerSize := int64(w.countWidth) + int64(len(entries))*int64(w.entryStride) + int64(w.offsetWidth)
	pstart := ifdOffset + headerSize

	var parea []byte
	entryBufs := make([][]byte, len(entries))
	for i, ent := range entries {
		buf := make([]byte, w.entryStride)
		e.order.PutUint16(buf[0:2], uint16(ent.tag))
		e.order.PutUint16(buf[2:4], uint16(ent.typ))
		putUintN(e.order, buf[4:4+w.valueWidth], ent.count)

		valueFieldOff := 4 + w.valueWidth
		if int64(len(ent.raw)) <= int64(w.valueWidth) {
			copy(buf[valueFieldOff:], ent.raw)
		} else {
			off := pstart + int64(len(parea))
			putUintN(e.order, buf[valueFieldOff:valueFieldOff+w.valueWidth], uint64(off))
			parea = append(parea, ent.raw...)
		}
		entryBufs[i] = buf
	}

	if w.countWidth == 2 {
		err = e.bw.WriteUint16(uint16(len(entries)))
	} else {
		err = e.bw.WriteUint64(uint64(len(entries)))
	}
	if err != nil {
		return 0, 0, err
	}

	for _, buf := range entryBufs {
		if err := e.bw.WriteBytes(buf); err != nil {
			return 0, 0, err
		}
	}

	nextPtrOffset = e.bw.Pos()
	if w.offsetWidth == 4 {
		err = e.bw.WriteUint32(0)
	} else {
		err = e.bw.WriteUint64(0)
	}
	if err != nil {
		return 0, 0, err
	}

	if err := e.bw.WriteBytes(parea); err != nil {
		return 0, 0, err
	}
	return ifdOffset, nextPtrOffset, nil
}

func (e *Encoder) patchOffsetField(fieldOff int64, v uint64) error {
	buf := make([]byte, e.widths.offsetWidth)
	putUintN(e.order, buf, v)
	return e.bw.patchAt(fieldOff, buf)
}

func putUintN(order binary.ByteOrder, buf []byte, v uint64) {
	switch len(buf) {
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	}
}

// encodeValueBytes wire-encodes a Value for WriteTag, the inverse of
// ifd.go's decodeValue.
func encodeValueBytes(order binary.ByteOrder, v Value) (FieldType, []byte, uint64, error) {
	switch v.Type {
	case TByte:
		return TByte, append([]byte(nil), v.Bytes...), uint64(len(v.Bytes)), nil
	case TSByte:
		b := make([]byte, len(v.SBytes))
		for i, x := range v.SBytes {
			b[i] = byte(x)
		}
		return TSByte, b, uint64(len(v.SBytes)), nil
	case TAscii:
		b := append([]byte(v.Ascii), 0)
		return TAscii, b, uint64(len(b)), nil
	case TUndefined:
		return TUndefined, append([]byte(nil), v.Undefined...), uint64(len(v.Undefined)), nil
	case TShort:
		b := make([]byte, 2*len(v.Shorts))
		for i, x := range v.Shorts {
			order.PutUint16(b[2*i:], x)
		}
		return TShort, b, uint64(len(v.Shorts)), nil
	case TSShort:
		b := make([]byte, 2*len(v.SShorts))
		for i, x := range v.SShorts {
			order.PutUint16(b[2*i:], uint16(x))
		}
		return TSShort, b, uint64(len(v.SShorts)), nil
	case TLong:
		b := make([]byte, 4*len(v.Longs))
		for i, x := range v.Longs {
			order.PutUint32(b[4*i:], x)
		}
		return TLong, b, uint64(len(v.Longs)), nil
	case TSLong:
		b := make([]byte, 4*len(v.SLongs))
		for i, x := range v.SLongs {
			order.PutUint32(b[4*i:], uint32(x))
		}
		return TSLong, b, uint64(len(v.SLongs)), nil
	case TIfd:
		b := make([]byte, 4*len(v.Ifds))
		for i, x := range v.Ifds {
			order.PutUint32(b[4*i:], x)
		}
		return TIfd, b, uint64(len(v.Ifds)), nil
	case TLong8:
		b := make([]byte, 8*len(v.Long8s))
		for i, x := range v.Long8s {
			order.PutUint64(b[8*i:], x)
		}
		return TLong8, b, uint64(len(v.Long8s)), nil
	case TSLong8:
		b := make([]byte, 8*len(v.SLong8s))
		for i, x := range v.SLong8s {
			order.PutUint64(b[8*i:], uint64(x))
		}
		return TSLong8, b, uint64(len(v.SLong8s)), nil
	case TIfd8:
		b := make([]byte, 8*len(v.Ifd8s))
		for i, x := range v.Ifd8s {
			order.PutUint64(b[8*i:], x)
		}
		return TIfd8, b, uint64(len(v.Ifd8s)), nil
	case TRational:
		b := make([]byte, 8*len(v.Rationals))
		for i, r := range v.Rationals {
			order.PutUint32(b[8*i:], r.Numerator)
			order.PutUint32(b[8*i+4:], r.Denominator)
		}
		return TRational, b, uint64(len(v.Rationals)), nil
	case TSRational:
		b := make([]byte, 8*len(v.SRationals))
		for i, r := range v.SRationals {
			order.PutUint32(b[8*i:], uint32(r.Numerator))
			order.PutUint32(b[8*i+4:], uint32(r.Denominator))
		}
		return TSRational, b, uint64(len(v.SRationals)), nil
	case TFloat:
		b := make([]byte, 4*len(v.Floats))
		for i, f := range v.Floats {
			order.PutUint32(b[4*i:], math.Float32bits(f))
		}
		return TFloat, b, uint64(len(v.Floats)), nil
	case TDouble:
		b := make([]byte, 8*len(v.Doubles))
		for i, f := range v.Doubles {
			order.PutUint64(b[8*i:], math.Float64bits(f))
		}
		return TDouble, b, uint64(len(v.Doubles)), nil
	default:
		return 0, nil, 0, usageErrorf("cannot encode tag value of type %d", v.Type)
	}
}
