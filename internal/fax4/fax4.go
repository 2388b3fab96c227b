// Package fax4 decodes CCITT Group 4 (T.6, two-dimensional only) fax
// data, TIFF compression code 4. No example repo in the retrieval pack
// vendors a CCITT decoder (the one compression scheme none of the pack's
// dependencies cover), so this is a from-scratch implementation of the
// ITU-T T.6 two-dimensional coding scheme, grounded on the bit-reader
// idiom the teacher already uses in compress.go for its PackBits reader.
//
// Encoding is out of scope: TIFF 6.0 section 3 never requires encoders
// to emit Group 4, and spec.md treats this scheme as decode-only.
package fax4

import (
	"bufio"
	"errors"
	"io"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
	"github.com/mdouchement/gotiffcore/internal/codecerr"
)

// mode is a two-dimensional coding mode per T.6 §4.2.1.
type mode int

const (
	modePass mode = iota
	modeHorizontal
	modeV0
	modeVR1
	modeVR2
	modeVR3
	modeVL1
	modeVL2
	modeVL3
	modeExt2D // extension codes, unsupported
	modeEOL
)

// modeCode is one entry of the 2D mode code tree, read MSB-first.
type modeCode struct {
	bits int
	len  int
	mode mode
}

// modeTable is ordered shortest-code-first so readMode can match
// greedily bit by bit without building a full trie.
var modeTable = []modeCode{
	{0b1, 1, modeV0},
	{0b011, 3, modeVR1},
	{0b010, 3, modeVL1},
	{0b001, 3, modeHorizontal},
	{0b0001, 4, modePass},
	{0b000011, 6, modeVR2},
	{0b000010, 6, modeVL2},
	{0b0000011, 7, modeVR3},
	{0b0000010, 7, modeVL3},
	{0b0000001, 7, modeExt2D},
	{0b000000000001, 12, modeEOL},
}

// runCode is one terminating or makeup code of the modified Huffman
// run-length tables (T.4 Tables 2-4).
type runCode struct {
	bits int
	len  int
	run  int
}

// bitReader is the shared machinery for matching a table of prefix
// codes; both mode and run-length tables use it.
type bitReader struct {
	r       *bufio.Reader
	cur     uint32
	nbits   uint
	consume uint64 // total bits consumed, for row byte-alignment bookkeeping
}

func newBitReader(r io.Reader) *bitReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &bitReader{r: br}
}

func (b *bitReader) fill() error {
	for b.nbits <= 24 {
		c, err := b.r.ReadByte()
		if err != nil {
			if err == io.EOF && b.nbits > 0 {
				// pad with zero bits so trailing short codes can still match
				b.cur <<= 8
				b.nbits += 8
				continue
			}
			return err
		}
		b.cur = b.cur<<8 | uint32(c)
		b.nbits += 8
	}
	return nil
}

func (b *bitReader) peek(n uint) (uint32, error) {
	if b.nbits < n {
		if err := b.fill(); err != nil && b.nbits < n {
			return 0, err
		}
	}
	return (b.cur >> (b.nbits - n)) & ((1 << n) - 1), nil
}

func (b *bitReader) drop(n uint) {
	b.nbits -= n
	b.consume += uint64(n)
}

func (b *bitReader) alignToByte() {
	rem := b.consume % 8
	if rem != 0 {
		b.drop(uint(8 - rem))
	}
}

func (b *bitReader) readMode() (mode, error) {
	for _, c := range modeTable {
		v, err := b.peek(uint(c.len))
		if err != nil {
			return 0, err
		}
		if int(v) == c.bits {
			b.drop(uint(c.len))
			return c.mode, nil
		}
	}
	return 0, errors.New("invalid CCITT Group 4 2D mode code")
}

// readRun decodes one full run length (chaining makeup codes followed
// by a terminating code, as T.4 §4.1.1 requires for runs >= 64).
func (b *bitReader) readRun(white bool) (int, error) {
	total := 0
	for {
		table := blackCodes
		if white {
			table = whiteCodes
		}
		n, terminating, err := b.matchRun(table)
		if err != nil {
			return 0, err
		}
		total += n
		if terminating {
			return total, nil
		}
	}
}

func (b *bitReader) matchRun(table []runCode) (run int, terminating bool, err error) {
	for _, c := range table {
		v, perr := b.peek(uint(c.len))
		if perr != nil {
			return 0, false, perr
		}
		if int(v) == c.bits {
			b.drop(uint(c.len))
			return c.run, c.run < 64, nil
		}
	}
	return 0, false, errors.New("invalid CCITT run-length code")
}

// Decode decompresses one CCITT Group 4 (two-dimensional only) fax
// image of ctx.Width x ctx.Height 1-bit pixels into a bit-packed,
// MSB-first, row-byte-aligned stream (0 = white/0, 1 = black/1) — the
// same on-wire layout BitsPerSample=1 data has elsewhere in this
// package, so it flows through the predictor/unpack stages unchanged.
func Decode(r io.Reader, bound int64, ctx codecctx.Context) ([]byte, error) {
	if ctx.Width <= 0 || ctx.Height <= 0 {
		return nil, errors.New("CCITT Group 4 decode requires a known image width and height")
	}

	rowStride := (ctx.Width + 7) / 8
	out := make([]byte, rowStride*ctx.Height)
	if int64(len(out)) > bound {
		return nil, codecerr.LimitExceeded("CCITT Group 4 output of %d bytes exceeds bound of %d bytes", len(out), bound)
	}

	br := newBitReader(r)

	// reference line changing elements; ref starts as an imaginary
	// all-white line above the image, i.e. no changing elements.
	ref := []int{ctx.Width, ctx.Width}
	unpacked := make([]byte, ctx.Width)

	for y := 0; y < ctx.Height; y++ {
		cur, err := decodeRow(br, ref, ctx.Width)
		if err != nil {
			return nil, err
		}
		fillRow(unpacked, cur, ctx.Width)
		packRow(out[y*rowStride:(y+1)*rowStride], unpacked, ctx.Width)
		ref = cur
	}
	return out, nil
}

// packRow packs width 1-bit values (one byte each, already resolved to
// 0 or 1 by fillRow) MSB-first into dst.
func packRow(dst, bits []byte, width int) {
	for i := 0; i < width; i++ {
		if bits[i] != 0 {
			dst[i/8] |= 1 << uint(7-i%8)
		}
	}
}

// decodeRow decodes one row's changing elements against the reference
// line ref, per T.6 §4.2 (Pass, Horizontal, and Vertical modes).
func decodeRow(br *bitReader, ref []int, width int) ([]int, error) {
	var cur []int
	a0 := -1
	color := 0 // 0 = white, 1 = black

	for a0 < width {
		b1 := findB1(ref, a0, color, width)
		b2 := findNext(ref, b1, width)

		m, err := br.readMode()
		if err != nil {
			return nil, err
		}

		switch m {
		case modePass:
			a0 = b2
		case modeHorizontal:
			white := color == 0
			r1, err := br.readRun(white)
			if err != nil {
				return nil, err
			}
			r2, err := br.readRun(!white)
			if err != nil {
				return nil, err
			}
			start := a0
			if start < 0 {
				start = 0
			}
			a1 := start + r1
			a2 := a1 + r2
			cur = append(cur, clamp(a1, width), clamp(a2, width))
			a0 = a2
		case modeV0, modeVR1, modeVR2, modeVR3, modeVL1, modeVL2, modeVL3:
			delta := vdelta(m)
			a1 := b1 + delta
			cur = append(cur, clamp(a1, width))
			a0 = a1
			color = 1 - color
		default:
			return nil, errors.New("unsupported CCITT Group 4 mode code")
		}
	}

	cur = append(cur, width, width)
	return cur, nil
}

func vdelta(m mode) int {
	switch m {
	case modeVR1:
		return 1
	case modeVR2:
		return 2
	case modeVR3:
		return 3
	case modeVL1:
		return -1
	case modeVL2:
		return -2
	case modeVL3:
		return -3
	default:
		return 0
	}
}

func clamp(v, width int) int {
	if v < 0 {
		return 0
	}
	if v > width {
		return width
	}
	return v
}

// findB1 locates the first changing element on the reference line to
// the right of a0 and of opposite color to the current coding color,
// per T.6 §4.2.1.
func findB1(ref []int, a0, color, width int) int {
	i := 0
	for i < len(ref) && ref[i] <= a0 {
		i++
	}
	// ref[i] is the first changing element > a0. Changing elements
	// alternate color starting with white->black at ref[0]; b1 must
	// be the opposite color of `color`, which corresponds to an even
	// index when color == 0.
	if i%2 != color {
		i++
	}
	if i >= len(ref) {
		return width
	}
	return ref[i]
}

func findNext(ref []int, pos, width int) int {
	for _, v := range ref {
		if v > pos {
			return v
		}
	}
	return width
}

// fillRow expands a row's changing-element positions into a full
// byte-per-pixel bitmap, alternating white/black starting with white.
func fillRow(row []byte, changes []int, width int) {
	color := byte(0)
	pos := 0
	for _, c := range changes {
		if c > width {
			c = width
		}
		for ; pos < c; pos++ {
			row[pos] = color
		}
		color = 1 - color
		if pos >= width {
			break
		}
	}
	for ; pos < width; pos++ {
		row[pos] = color
	}
}
