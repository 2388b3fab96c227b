package gotiffcore

// Limits bounds the sizes this package will allocate or stream while
// decoding an untrusted file. Every size derived from file contents
// (an IFD entry count, a chunk's declared or decoded length) is checked
// against the relevant field here before any allocation happens.
type Limits struct {
	// DecodingBufferSize bounds the total size of a single read_image
	// or read_chunk output buffer.
	DecodingBufferSize int64

	// IntermediateBufferSize bounds the uncompressed size of a single
	// chunk while it is being decompressed, independent of how large
	// the final typed buffer is.
	IntermediateBufferSize int64

	// MaxIFDEntries bounds the number of entries a single IFD may
	// declare, which in turn bounds the work done per directory.
	MaxIFDEntries int
}

// DefaultLimits returns conservative limits suitable for decoding files
// from an untrusted source. Callers decoding known-good, large images
// (e.g. aerial imagery) should raise these explicitly.
func DefaultLimits() Limits {
	return Limits{
		DecodingBufferSize:      1 << 30, // 1 GiB
		IntermediateBufferSize:  256 << 20,
		MaxIFDEntries:           1 << 16,
	}
}

// checkSize fails with LimitsExceeded if size is negative or exceeds cap.
// Negative sizes only occur from an overflowed multiplication upstream,
// so this doubles as the overflow guard spec.md §4.7 requires.
func checkSize(size, cap int64, what string) error {
	if size < 0 {
		return limitsErrorf("%s overflowed while computing its size", what)
	}
	if size > cap {
		return limitsErrorf("%s of %d bytes exceeds configured limit of %d bytes", what, size, cap)
	}
	return nil
}

// mulChecked multiplies a and b, failing with an IntSizeError-flavored
// LimitsExceeded instead of silently wrapping if the product would
// overflow a non-negative int64.
func mulChecked(a, b int64, what string) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a < 0 || b < 0 {
		return 0, intSizeErrorf("%s: negative operand in size computation", what)
	}
	p := a * b
	if p/a != b {
		return 0, intSizeErrorf("%s: multiplication overflow", what)
	}
	return p, nil
}

func addChecked(a, b int64, what string) (int64, error) {
	if a < 0 || b < 0 {
		return 0, intSizeErrorf("%s: negative operand in size computation", what)
	}
	s := a + b
	if s < a {
		return 0, intSizeErrorf("%s: addition overflow", what)
	}
	return s, nil
}
