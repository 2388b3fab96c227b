package gotiffcore

import (
	"encoding/binary"
	"io"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
)

// ColorType describes how an image's samples map to visible color,
// derived from its PhotometricInterpretation and SamplesPerPixel tags.
// Color conversion itself is out of scope (spec.md §1); ColorType only
// names the convention so callers can choose how to interpret samples.
type ColorType struct {
	Photometric     int
	SamplesPerPixel int
}

func (c ColorType) String() string {
	switch c.Photometric {
	case PhotometricWhiteIsZero:
		return "WhiteIsZero"
	case PhotometricBlackIsZero:
		return "BlackIsZero"
	case PhotometricRGB:
		return "RGB"
	case PhotometricPalette:
		return "Palette"
	case PhotometricMask:
		return "Mask"
	case PhotometricCMYK:
		return "CMYK"
	case PhotometricYCbCr:
		return "YCbCr"
	case PhotometricCIELab:
		return "CIELab"
	default:
		return "Unknown"
	}
}

// image holds the parameters derived from one IFD's tags, per spec.md
// §3 "Image (derived from IFD)".
type image struct {
	dir *Directory

	width, height   int
	bitsPerSample   int
	samplesPerPixel int
	photometric     int
	compression     int
	planar          int
	predictor       int
	sampleFormat    int

	geometry *ChunkGeometry

	chunkOffsets    []uint64
	chunkByteCounts []uint64
}

// Decoder orchestrates directory parsing, chunk decompression, predictor
// reversal and sample unpacking into a single façade over a seekable
// source, per the state machine spec.md §4.7 describes:
// {Init → HeaderParsed → ImagePositioned → ImageDecoded}.
type Decoder struct {
	src     Source
	order   binary.ByteOrder
	dialect Dialect
	limits  Limits
	walker  *directoryWalker

	img *image
}

// New parses the file header, positions the decoder on the first IFD
// and loads its derived image parameters, using DefaultLimits.
func New(src Source) (*Decoder, error) {
	return NewWithLimits(src, DefaultLimits())
}

// NewWithLimits is New with caller-supplied resource limits.
func NewWithLimits(src Source, limits Limits) (*Decoder, error) {
	order, dialect, firstIFD, err := parseHeader(src)
	if err != nil {
		return nil, err
	}

	br := newByteReader(src, order)
	d := &Decoder{
		src:     src,
		order:   order,
		dialect: dialect,
		limits:  limits,
		walker:  newDirectoryWalker(br, dialect, limits),
	}

	dir, err := d.walker.next(firstIFD)
	if err != nil {
		return nil, err
	}
	img, err := buildImage(dir)
	if err != nil {
		return nil, err
	}
	d.img = img

	return d, nil
}

// NextImage advances to the IFD named by the current image's next-IFD
// pointer. It returns false (with a nil error) once that pointer is 0.
func (d *Decoder) NextImage() (bool, error) {
	next := d.img.dir.NextOffset
	if next == 0 {
		return false, nil
	}
	dir, err := d.walker.next(next)
	if err != nil {
		return false, err
	}
	img, err := buildImage(dir)
	if err != nil {
		return false, err
	}
	d.img = img
	return true, nil
}

// Dimensions returns the current image's pixel width and height.
func (d *Decoder) Dimensions() (width, height int) {
	return d.img.width, d.img.height
}

// ColorType returns the current image's photometric/sample-count pair.
func (d *Decoder) ColorType() ColorType {
	return ColorType{Photometric: d.img.photometric, SamplesPerPixel: d.img.samplesPerPixel}
}

// ChunkCount returns the number of chunks (strips or tiles, times
// planes) the current image is divided into.
func (d *Decoder) ChunkCount() int { return d.img.geometry.ChunkCount() }

// ChunkDimensions returns chunk idx's full, possibly padded extent.
func (d *Decoder) ChunkDimensions(idx int) (w, h int, err error) {
	r, err := d.img.geometry.Chunk(idx)
	if err != nil {
		return 0, 0, err
	}
	return r.W, r.H, nil
}

// ChunkDataDimensions returns chunk idx's unpadded extent: for a tile
// straddling the right or bottom edge this is smaller than
// ChunkDimensions; strips are never padded horizontally.
func (d *Decoder) ChunkDataDimensions(idx int) (w, h int, err error) {
	r, err := d.img.geometry.Chunk(idx)
	if err != nil {
		return 0, 0, err
	}
	return r.DataW, r.DataH, nil
}

// GetTag returns the raw value stored under tag in the current image's
// IFD, if present.
func (d *Decoder) GetTag(tag Tag) (Value, bool) {
	return d.img.dir.Get(tag)
}

// TagIter returns every tag code present in the current image's IFD, in
// ascending order.
func (d *Decoder) TagIter() []Tag {
	return sortedTags(d.img.dir.Tags())
}

// ReadChunk decodes chunk idx (decompress, reverse predictor, unpack)
// into a freshly allocated buffer sized to ChunkDimensions(idx) — the
// full, possibly padded extent; callers assembling a full image via
// ReadImage trim to ChunkDataDimensions themselves.
func (d *Decoder) ReadChunk(idx int) (*SampleBuffer, error) {
	region, err := d.img.geometry.Chunk(idx)
	if err != nil {
		return nil, err
	}
	n, err := mulChecked(int64(region.W)*int64(region.H), int64(d.img.samplesPerPixel), "chunk buffer")
	if err != nil {
		return nil, err
	}
	if err := checkSize(n, d.limits.DecodingBufferSize, "chunk buffer"); err != nil {
		return nil, err
	}
	buf, err := NewSampleBuffer(d.img.sampleFormat, d.img.bitsPerSample, int(n))
	if err != nil {
		return nil, err
	}
	if err := d.readChunkInto(idx, region, buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadChunkInto is ReadChunk writing into a caller-provided buffer at
// sample offset 0; it is idempotent for the same image/chunk index.
func (d *Decoder) ReadChunkInto(idx int, dst *SampleBuffer) error {
	region, err := d.img.geometry.Chunk(idx)
	if err != nil {
		return err
	}
	return d.readChunkInto(idx, region, dst, 0)
}

func (d *Decoder) readChunkInto(idx int, region ChunkRegion, dst *SampleBuffer, dstOffset int) error {
	if idx < 0 || idx >= len(d.img.chunkOffsets) {
		return formatErrorf(ReasonInvalidChunkCount, "chunk index %d out of range [0,%d)", idx, len(d.img.chunkOffsets))
	}
	offset := d.img.chunkOffsets[idx]
	byteCount := d.img.chunkByteCounts[idx]

	// a planar chunk holds one sample per pixel; a strip stores only the
	// rows it covers, so the final strip of a plane may be short
	spp := d.img.samplesPerPixel
	if d.img.planar == PlanarPlanar {
		spp = 1
	}
	rows := region.H
	if d.img.geometry.Layout == LayoutStrip {
		rows = region.DataH
	}

	rowStride := packedRowStride(region.W*spp, d.img.bitsPerSample)
	bound, err := mulChecked(int64(rowStride), int64(rows), "chunk uncompressed size")
	if err != nil {
		return err
	}
	if err := checkSize(bound, d.limits.IntermediateBufferSize, "chunk"); err != nil {
		return err
	}

	sr := io.NewSectionReader(d.src, int64(offset), int64(byteCount))
	ctx := codecctx.Context{
		Width:           region.W,
		Height:          rows,
		BitsPerSample:   d.img.bitsPerSample,
		SamplesPerPixel: spp,
	}
	raw, err := decodeChunk(uint16(d.img.compression), sr, bound, ctx)
	if err != nil {
		return err
	}
	if int64(len(raw)) < bound {
		return formatErrorf(ReasonTruncatedValue, "chunk %d decoded to %d bytes, expected %d", idx, len(raw), bound)
	}

	switch d.img.predictor {
	case PredictorHorizontal:
		if err := applyHorizontalPredictorInverse(raw, rows, rowStride, region.W, spp, d.img.bitsPerSample, d.order); err != nil {
			return err
		}
	case PredictorFloatingPoint:
		if err := applyFloatingPointPredictorInverse(raw, rows, rowStride, region.W, spp, d.img.bitsPerSample); err != nil {
			return err
		}
	case PredictorNone:
		// no-op
	default:
		return unsupportedErrorf("", "predictor %d", d.img.predictor)
	}

	if err := UnpackChunk(dst, dstOffset, raw, region.W, rows, spp, d.img.bitsPerSample, d.order); err != nil {
		return err
	}

	if d.img.photometric == PhotometricWhiteIsZero {
		if err := InvertWhiteIsZero(dst, dstOffset, region.W*rows*spp); err != nil {
			return err
		}
	}
	return nil
}

// ReadImage decodes every chunk of the current image and assembles them
// in row-major order into one contiguous buffer, trimming tile padding
// and honoring planar vs chunky layout.
func (d *Decoder) ReadImage() (*SampleBuffer, error) {
	spp := d.img.samplesPerPixel
	total, err := mulChecked(int64(d.img.width)*int64(d.img.height), int64(spp), "assembled image")
	if err != nil {
		return nil, err
	}
	if err := checkSize(total, d.limits.DecodingBufferSize, "assembled image"); err != nil {
		return nil, err
	}

	dst, err := NewSampleBuffer(d.img.sampleFormat, d.img.bitsPerSample, int(total))
	if err != nil {
		return nil, err
	}

	chunkN := d.img.geometry.ChunkCount()
	for idx := 0; idx < chunkN; idx++ {
		region, err := d.img.geometry.Chunk(idx)
		if err != nil {
			return nil, err
		}

		chunkSamples, err := mulChecked(int64(region.W)*int64(region.H), int64(spp), "chunk buffer")
		if err != nil {
			return nil, err
		}
		if err := checkSize(chunkSamples, d.limits.DecodingBufferSize, "chunk buffer"); err != nil {
			return nil, err
		}
		chunkBuf, err := NewSampleBuffer(d.img.sampleFormat, d.img.bitsPerSample, int(chunkSamples))
		if err != nil {
			return nil, err
		}
		if err := d.readChunkInto(idx, region, chunkBuf, 0); err != nil {
			return nil, err
		}

		if err := copyChunkRegion(dst, chunkBuf, region, d.img.width, d.img.height, spp, d.img.planar); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// copyChunkRegion copies chunkBuf's DataW x DataH unpadded region into
// dst at its (X0,Y0) image position, trimming any tile padding. Planar
// images store each plane contiguously following the other, each
// imageWidth*imageHeight samples long; chunky images interleave spp
// samples per pixel within one plane.
func copyChunkRegion(dst, chunkBuf *SampleBuffer, region ChunkRegion, imageWidth, imageHeight, spp, planar int) error {
	planeBase := 0
	rowSamples := imageWidth * spp
	if planar == PlanarPlanar {
		planeBase = region.Plane * imageWidth * imageHeight
	}

	for y := 0; y < region.DataH; y++ {
		var srcRowStart, dstRowStart, n int
		if planar == PlanarPlanar {
			srcRowStart = y * region.W
			dstRowStart = planeBase + (region.Y0+y)*imageWidth + region.X0
			n = region.DataW
		} else {
			srcRowStart = y * region.W * spp
			dstRowStart = (region.Y0+y)*rowSamples + region.X0*spp
			n = region.DataW * spp
		}
		if err := copySamples(dst, dstRowStart, chunkBuf, srcRowStart, n); err != nil {
			return err
		}
	}
	return nil
}

// copySamples copies n samples from src[srcOff:] to dst[dstOff:],
// dispatching on the buffer's populated slice.
func copySamples(dst *SampleBuffer, dstOff int, src *SampleBuffer, srcOff, n int) error {
	switch {
	case dst.Uint8 != nil:
		copy(dst.Uint8[dstOff:dstOff+n], src.Uint8[srcOff:srcOff+n])
	case dst.Int8 != nil:
		copy(dst.Int8[dstOff:dstOff+n], src.Int8[srcOff:srcOff+n])
	case dst.Uint16 != nil:
		copy(dst.Uint16[dstOff:dstOff+n], src.Uint16[srcOff:srcOff+n])
	case dst.Int16 != nil:
		copy(dst.Int16[dstOff:dstOff+n], src.Int16[srcOff:srcOff+n])
	case dst.Uint32 != nil:
		copy(dst.Uint32[dstOff:dstOff+n], src.Uint32[srcOff:srcOff+n])
	case dst.Int32 != nil:
		copy(dst.Int32[dstOff:dstOff+n], src.Int32[srcOff:srcOff+n])
	case dst.Uint64 != nil:
		copy(dst.Uint64[dstOff:dstOff+n], src.Uint64[srcOff:srcOff+n])
	case dst.Int64 != nil:
		copy(dst.Int64[dstOff:dstOff+n], src.Int64[srcOff:srcOff+n])
	case dst.Float32 != nil:
		copy(dst.Float32[dstOff:dstOff+n], src.Float32[srcOff:srcOff+n])
	case dst.Float64 != nil:
		copy(dst.Float64[dstOff:dstOff+n], src.Float64[srcOff:srcOff+n])
	default:
		copy(dst.Void[dstOff:dstOff+n], src.Void[srcOff:srcOff+n])
	}
	return nil
}

// buildImage resolves one IFD's tags into derived image parameters and
// chunk geometry, per spec.md §3/§4.3.
func buildImage(dir *Directory) (*image, error) {
	widthU, err := requiredTagUint(dir, TagImageWidth)
	if err != nil {
		return nil, err
	}
	heightU, err := requiredTagUint(dir, TagImageLength)
	if err != nil {
		return nil, err
	}
	width, height := int(widthU), int(heightU)

	bitsPerSample := 1
	if bpsVal, ok := dir.Get(TagBitsPerSample); ok && bpsVal.Count() > 0 {
		b0, err := bpsVal.Uint(0)
		if err != nil {
			return nil, err
		}
		bitsPerSample = int(b0)
		for i := 1; i < bpsVal.Count(); i++ {
			bi, err := bpsVal.Uint(i)
			if err != nil {
				return nil, err
			}
			if int(bi) != bitsPerSample {
				return nil, unsupportedErrorf("", "non-uniform BitsPerSample across channels")
			}
		}
	}

	samplesPerPixel := 1
	if sppU, ok, err := tagUint(dir, TagSamplesPerPixel); err != nil {
		return nil, err
	} else if ok {
		samplesPerPixel = int(sppU)
	}

	photoU, err := requiredTagUint(dir, TagPhotometricInterpretation)
	if err != nil {
		return nil, err
	}

	compression := CompressionNone
	if compU, ok, err := tagUint(dir, TagCompression); err != nil {
		return nil, err
	} else if ok {
		compression = int(compU)
	}

	planar := PlanarChunky
	if planarU, ok, err := tagUint(dir, TagPlanarConfiguration); err != nil {
		return nil, err
	} else if ok {
		planar = int(planarU)
	}

	predictor := PredictorNone
	if predictorU, ok, err := tagUint(dir, TagPredictor); err != nil {
		return nil, err
	} else if ok {
		predictor = int(predictorU)
	}

	sampleFormat := SampleFormatUnsigned
	if sampleFormatU, ok, err := tagUint(dir, TagSampleFormat); err != nil {
		return nil, err
	} else if ok {
		sampleFormat = int(sampleFormatU)
	}

	_, isTiled := dir.Get(TagTileWidth)

	var geometry *ChunkGeometry
	var offsets, byteCounts []uint64

	if isTiled {
		tw, err := requiredTagUint(dir, TagTileWidth)
		if err != nil {
			return nil, err
		}
		tl, err := requiredTagUint(dir, TagTileLength)
		if err != nil {
			return nil, err
		}
		geometry, err = NewTileGeometry(width, height, int(tw), int(tl), samplesPerPixel, planar)
		if err != nil {
			return nil, err
		}
		offsets, _, err = tagUint64Slice(dir, TagTileOffsets)
		if err != nil {
			return nil, err
		}
		byteCounts, _, err = tagUint64Slice(dir, TagTileByteCounts)
		if err != nil {
			return nil, err
		}
	} else {
		rowsPerStrip := height
		if rowsPerStripU, ok, err := tagUint(dir, TagRowsPerStrip); err != nil {
			return nil, err
		} else if ok {
			rowsPerStrip = int(rowsPerStripU)
		}
		geometry, err = NewStripGeometry(width, height, rowsPerStrip, samplesPerPixel, planar)
		if err != nil {
			return nil, err
		}
		offsets, _, err = tagUint64Slice(dir, TagStripOffsets)
		if err != nil {
			return nil, err
		}
		byteCounts, _, err = tagUint64Slice(dir, TagStripByteCounts)
		if err != nil {
			return nil, err
		}
	}

	if len(offsets) != len(byteCounts) {
		return nil, formatErrorf(ReasonInconsistentChunkSizes, "chunk offset/byte-count array length mismatch: %d vs %d", len(offsets), len(byteCounts))
	}
	if len(offsets) != geometry.ChunkCount() {
		return nil, formatErrorf(ReasonInvalidChunkCount, "chunk array length %d does not match computed chunk count %d", len(offsets), geometry.ChunkCount())
	}

	return &image{
		dir:             dir,
		width:           width,
		height:          height,
		bitsPerSample:   bitsPerSample,
		samplesPerPixel: samplesPerPixel,
		photometric:     int(photoU),
		compression:     compression,
		planar:          planar,
		predictor:       predictor,
		sampleFormat:    sampleFormat,
		geometry:        geometry,
		chunkOffsets:    offsets,
		chunkByteCounts: byteCounts,
	}, nil
}

func tagUint(dir *Directory, tag Tag) (uint64, bool, error) {
	v, ok := dir.Get(tag)
	if !ok || v.Count() == 0 {
		return 0, false, nil
	}
	u, err := v.Uint(0)
	if err != nil {
		return 0, false, err
	}
	return u, true, nil
}

func requiredTagUint(dir *Directory, tag Tag) (uint64, error) {
	u, ok, err := tagUint(dir, tag)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, formatErrorf(ReasonTruncatedValue, "required tag %s missing", TagName(tag))
	}
	return u, nil
}

func tagUint64Slice(dir *Directory, tag Tag) ([]uint64, bool, error) {
	v, ok := dir.Get(tag)
	if !ok {
		return nil, false, nil
	}
	out := make([]uint64, v.Count())
	for i := range out {
		u, err := v.Uint(i)
		if err != nil {
			return nil, false, err
		}
		out[i] = u
	}
	return out, true, nil
}
