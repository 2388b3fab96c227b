package gotiffcore

import "encoding/binary"

// applyHorizontalPredictorInverse undoes horizontal (predictor 2)
// differencing in place, one scanline at a time (predictor state never
// crosses chunk or row boundaries, per spec.md §4.5). buf holds rowCount
// rows of rowStride bytes each; width/samplesPerPixel/bitsPerSample
// describe the sample layout within a row.
func applyHorizontalPredictorInverse(buf []byte, rowCount, rowStride, width, samplesPerPixel, bitsPerSample int, order binary.ByteOrder) error {
	if bitsPerSample < 8 {
		// Sub-byte horizontal differencing operates on packed samples
		// directly; baseline TIFF readers are not required to support
		// it and this package follows that baseline.
		return unsupportedErrorf("", "horizontal predictor with %d-bit samples", bitsPerSample)
	}

	spp := samplesPerPixel
	bytesPerSample := bitsPerSample / 8

	for r := 0; r < rowCount; r++ {
		row := buf[r*rowStride : r*rowStride+rowStride]
		switch bytesPerSample {
		case 1:
			for i := spp; i < width*spp; i++ {
				row[i] += row[i-spp]
			}
		case 2:
			prev := make([]uint16, spp)
			for i := 0; i < width; i++ {
				for s := 0; s < spp; s++ {
					off := (i*spp + s) * 2
					v := order.Uint16(row[off:])
					v += prev[s]
					order.PutUint16(row[off:], v)
					prev[s] = v
				}
			}
		case 4:
			prev := make([]uint32, spp)
			for i := 0; i < width; i++ {
				for s := 0; s < spp; s++ {
					off := (i*spp + s) * 4
					v := order.Uint32(row[off:])
					v += prev[s]
					order.PutUint32(row[off:], v)
					prev[s] = v
				}
			}
		case 8:
			prev := make([]uint64, spp)
			for i := 0; i < width; i++ {
				for s := 0; s < spp; s++ {
					off := (i*spp + s) * 8
					v := order.Uint64(row[off:])
					v += prev[s]
					order.PutUint64(row[off:], v)
					prev[s] = v
				}
			}
		default:
			return unsupportedErrorf("", "horizontal predictor with %d-bit samples", bitsPerSample)
		}
	}
	return nil
}

// applyHorizontalPredictorForward is the encode-side inverse of
// applyHorizontalPredictorInverse: it replaces each sample with its
// difference from the preceding sample-of-the-same-channel, wrapping
// modularly over the sample width.
func applyHorizontalPredictorForward(buf []byte, rowCount, rowStride, width, samplesPerPixel, bitsPerSample int, order binary.ByteOrder) error {
	if bitsPerSample < 8 {
		return unsupportedErrorf("", "horizontal predictor with %d-bit samples", bitsPerSample)
	}
	spp := samplesPerPixel
	bytesPerSample := bitsPerSample / 8

	for r := 0; r < rowCount; r++ {
		row := buf[r*rowStride : r*rowStride+rowStride]
		switch bytesPerSample {
		case 1:
			for i := width*spp - 1; i >= spp; i-- {
				row[i] -= row[i-spp]
			}
		case 2:
			prev := make([]uint16, spp)
			for i := 0; i < width; i++ {
				for s := 0; s < spp; s++ {
					off := (i*spp + s) * 2
					v := order.Uint16(row[off:])
					d := v - prev[s]
					prev[s] = v
					order.PutUint16(row[off:], d)
				}
			}
		case 4:
			prev := make([]uint32, spp)
			for i := 0; i < width; i++ {
				for s := 0; s < spp; s++ {
					off := (i*spp + s) * 4
					v := order.Uint32(row[off:])
					d := v - prev[s]
					prev[s] = v
					order.PutUint32(row[off:], d)
				}
			}
		case 8:
			prev := make([]uint64, spp)
			for i := 0; i < width; i++ {
				for s := 0; s < spp; s++ {
					off := (i*spp + s) * 8
					v := order.Uint64(row[off:])
					d := v - prev[s]
					prev[s] = v
					order.PutUint64(row[off:], d)
				}
			}
		default:
			return unsupportedErrorf("", "horizontal predictor with %d-bit samples", bitsPerSample)
		}
	}
	return nil
}

// applyFloatingPointPredictorInverse undoes predictor 3 (Adobe's
// floating-point horizontal differencing, TIFF Technical Note 3) in
// place: the row is first treated as a flat byte sequence and
// cumulatively summed, then the resulting "byte-plane" transposition is
// undone to recover the original per-sample byte order.
func applyFloatingPointPredictorInverse(buf []byte, rowCount, rowStride, width, samplesPerPixel, bitsPerSample int) error {
	bytesPerSample := bitsPerSample / 8
	if bytesPerSample != 2 && bytesPerSample != 4 && bytesPerSample != 8 {
		return unsupportedErrorf("", "floating point predictor with %d-bit samples", bitsPerSample)
	}
	count := width * samplesPerPixel

	scratch := make([]byte, rowStride)
	for r := 0; r < rowCount; r++ {
		row := buf[r*rowStride : r*rowStride+rowStride]

		for i := 1; i < len(row); i++ {
			row[i] += row[i-1]
		}

		untranspose(row, scratch[:len(row)], count, bytesPerSample)
		copy(row, scratch[:len(row)])
	}
	return nil
}

// applyFloatingPointPredictorForward is the encode-side counterpart.
func applyFloatingPointPredictorForward(buf []byte, rowCount, rowStride, width, samplesPerPixel, bitsPerSample int) error {
	bytesPerSample := bitsPerSample / 8
	if bytesPerSample != 2 && bytesPerSample != 4 && bytesPerSample != 8 {
		return unsupportedErrorf("", "floating point predictor with %d-bit samples", bitsPerSample)
	}
	count := width * samplesPerPixel

	scratch := make([]byte, rowStride)
	for r := 0; r < rowCount; r++ {
		row := buf[r*rowStride : r*rowStride+rowStride]

		transpose(row, scratch[:len(row)], count, bytesPerSample)
		copy(row, scratch[:len(row)])

		for i := len(row) - 1; i >= 1; i-- {
			row[i] -= row[i-1]
		}
	}
	return nil
}

// transpose rearranges row (count samples of bytesPerSample bytes each,
// in natural per-sample byte order) into dst as bytesPerSample planes:
// dst[j*count+i] = row[i*bytesPerSample+j].
func transpose(row, dst []byte, count, bytesPerSample int) {
	for i := 0; i < count; i++ {
		for j := 0; j < bytesPerSample; j++ {
			dst[j*count+i] = row[i*bytesPerSample+j]
		}
	}
}

// untranspose is transpose's inverse: row[i*bytesPerSample+j] = src[j*count+i].
func untranspose(src, dst []byte, count, bytesPerSample int) {
	for i := 0; i < count; i++ {
		for j := 0; j < bytesPerSample; j++ {
			dst[i*bytesPerSample+j] = src[j*count+i]
		}
	}
}
