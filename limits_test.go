package gotiffcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulCheckedOverflow(t *testing.T) {
	_, err := mulChecked(math.MaxInt64, 2, "test")
	assert.Error(t, err)
	assert.True(t, IsIntSizeError(err))
	assert.Equal(t, KindLimitsExceeded, KindOf(err))
}

func TestMulCheckedOrdinary(t *testing.T) {
	v, err := mulChecked(640, 480, "test")
	assert.NoError(t, err)
	assert.Equal(t, int64(307200), v)
}

func TestAddCheckedOverflow(t *testing.T) {
	_, err := addChecked(math.MaxInt64, 1, "test")
	assert.Error(t, err)
	assert.True(t, IsIntSizeError(err))
}

func TestCheckSizeExceedsCap(t *testing.T) {
	err := checkSize(100, 50, "buffer")
	assert.Error(t, err)
	assert.Equal(t, KindLimitsExceeded, KindOf(err))
}

func TestCheckSizeWithinCap(t *testing.T) {
	err := checkSize(10, 50, "buffer")
	assert.NoError(t, err)
}

func TestDefaultLimitsAreConservativeButNonZero(t *testing.T) {
	l := DefaultLimits()
	assert.Greater(t, l.DecodingBufferSize, int64(0))
	assert.Greater(t, l.IntermediateBufferSize, int64(0))
	assert.Greater(t, l.MaxIFDEntries, 0)
}
