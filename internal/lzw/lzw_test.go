package lzw

import (
	"bytes"
	"testing"

	"github.com/mdouchement/gotiffcore/internal/codecctx"
	"github.com/stretchr/testify/assert"
)

func TestLZWRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("aaaabbbbccccddddeeee"), 10)
	var buf bytes.Buffer
	assert.NoError(t, Encode(&buf, raw))

	out, err := Decode(bytes.NewReader(buf.Bytes()), int64(len(raw)), codecctx.Context{})
	assert.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestLZWRoundTripRandomish(t *testing.T) {
	raw := make([]byte, 512)
	for i := range raw {
		raw[i] = byte(i*37 + i*i)
	}
	var buf bytes.Buffer
	assert.NoError(t, Encode(&buf, raw))

	out, err := Decode(bytes.NewReader(buf.Bytes()), int64(len(raw)), codecctx.Context{})
	assert.NoError(t, err)
	assert.Equal(t, raw, out)
}
