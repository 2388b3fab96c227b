package gotiffcore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
	"github.com/mdouchement/gotiffcore/internal/codecerr"
	"github.com/mdouchement/gotiffcore/internal/compress"
	"github.com/mdouchement/gotiffcore/internal/fax4"
	"github.com/mdouchement/gotiffcore/internal/jpegchunk"
	"github.com/mdouchement/gotiffcore/internal/lzw"
)

// chunkDecoder is the common streaming-decoder capability set every
// compression adapter satisfies, per the polymorphism-over-compression
// design note (spec.md §9): selection is a single tagged-variant lookup
// by compression code, not a per-sample dispatch. ctx supplies the image
// parameters an adapter needs beyond its raw stream (CCITT Group 4 needs
// the row width; most adapters ignore it).
type chunkDecoder func(r io.Reader, uncompressedBound int64, ctx codecctx.Context) ([]byte, error)

// chunkEncoder is the encode-side counterpart. Not every adapter
// supports encoding (CCITT Group 4 and JPEG decode-only adapters report
// Unsupported), matching spec.md §6's compile-time-toggle framing.
type chunkEncoder func(w io.Writer, raw []byte) error

var decoders = map[uint16]chunkDecoder{
	CompressionNone:       decodeNone,
	CompressionPackBits:   compress.DecodePackBits,
	CompressionLZW:        lzw.Decode,
	CompressionDeflate:    compress.DecodeDeflate,
	CompressionOldDeflate: compress.DecodeDeflate,
	CompressionCCITTFax4:  fax4.Decode,
	CompressionJPEG:       jpegchunk.Decode,
	CompressionZStandard:  compress.DecodeZStandard,
}

var encoders = map[uint16]chunkEncoder{
	CompressionNone:      encodeNone,
	CompressionPackBits:  compress.EncodePackBits,
	CompressionLZW:       lzw.Encode,
	CompressionDeflate:   compress.EncodeDeflate,
	CompressionZStandard: compress.EncodeZStandard,
}

// decodeChunk decompresses one chunk's raw bytes using the adapter
// registered for code, enforcing uncompressedBound precisely (spec.md
// §4.4: exceeding it fails with LimitsExceeded before the buffer grows
// further). Adapter-level bound violations (internal/codecerr) are
// reclassified into this package's Error taxonomy so callers never see
// the internal sentinel type.
func decodeChunk(code uint16, r io.Reader, uncompressedBound int64, ctx codecctx.Context) ([]byte, error) {
	dec, ok := decoders[code]
	if !ok {
		return nil, unsupportedErrorf("", "compression %s", compressionName(code))
	}
	out, err := dec(r, uncompressedBound, ctx)
	if err != nil {
		if codecerr.IsLimitExceeded(err) {
			return nil, limitsErrorf("%s: %v", compressionName(code), err)
		}
		return nil, formatErrorf(ReasonTruncatedValue, "%s: %v", compressionName(code), err)
	}
	return out, nil
}

// encodeChunk compresses raw using the adapter registered for code.
func encodeChunk(code uint16, w io.Writer, raw []byte) ([]byte, error) {
	enc, ok := encoders[code]
	if !ok {
		return nil, unsupportedErrorf("", "compression %d (encode)", code)
	}
	var buf bytes.Buffer
	if err := enc(&buf, raw); err != nil {
		return nil, err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, ioErrorf(err, "writing compressed chunk")
	}
	return buf.Bytes(), nil
}

func decodeNone(r io.Reader, uncompressedBound int64, _ codecctx.Context) ([]byte, error) {
	return compress.ReadAllBounded(r, uncompressedBound)
}

func encodeNone(w io.Writer, raw []byte) error {
	_, err := w.Write(raw)
	if err != nil {
		return ioErrorf(err, "writing uncompressed chunk")
	}
	return nil
}

// compressionName is used in error messages and for the Decoder's
// descriptive API.
func compressionName(code uint16) string {
	switch code {
	case CompressionNone:
		return "None"
	case CompressionCCITTFax3:
		return "CCITT Group 3"
	case CompressionCCITTFax4:
		return "CCITT Group 4"
	case CompressionLZW:
		return "LZW"
	case CompressionOldJPEG:
		return "Old JPEG"
	case CompressionJPEG:
		return "JPEG"
	case CompressionDeflate:
		return "Deflate"
	case CompressionPackBits:
		return "PackBits"
	case CompressionOldDeflate:
		return "Old Deflate"
	case CompressionZStandard:
		return "ZStandard"
	default:
		return fmt.Sprintf("Unknown(%d)", code)
	}
}
