// Package lzw adapts golang.org/x/image/tiff/lzw — the exact TIFF-variant
// LZW (early-change code width increments, MSB-first bit packing, 9-12
// bit codes, clear/EOI control codes) the teacher's decoder.go already
// imports — to this module's streaming adapter contract.
package lzw

import (
	"io"

	ilzw "golang.org/x/image/tiff/lzw"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
	"github.com/mdouchement/gotiffcore/internal/codecerr"
)

// Decode decompresses a TIFF LZW stream. A stream that ends without a
// final EOI code is accepted: the reader reports io.ErrUnexpectedEOF
// for it, and Decode returns the bytes decoded up to that point.
func Decode(r io.Reader, bound int64, _ codecctx.Context) ([]byte, error) {
	zr := ilzw.NewReader(r, ilzw.MSB, 8)
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, bound+1))
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if int64(len(out)) > bound {
		return nil, codecerr.LimitExceeded("decoded size exceeds bound of %d bytes", bound)
	}
	return out, nil
}

// Encode compresses raw as a TIFF LZW stream.
func Encode(w io.Writer, raw []byte) error {
	zw := ilzw.NewWriter(w, ilzw.MSB, 8)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
