package sandbox

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedBufferWithinLimit(t *testing.T) {
	b := newBoundedBuffer(10)
	n, err := b.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, b.overflowed)
	assert.Equal(t, []byte("hello"), b.Bytes())
}

func TestBoundedBufferExactLimit(t *testing.T) {
	b := newBoundedBuffer(5)
	n, err := b.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, b.overflowed)
}

func TestBoundedBufferOverflow(t *testing.T) {
	b := newBoundedBuffer(5)
	n, err := b.Write([]byte("hello world"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 5, n)
	assert.True(t, b.overflowed)
	assert.Equal(t, []byte("hello"), b.Bytes())
}

func TestBoundedBufferWriteAfterOverflow(t *testing.T) {
	b := newBoundedBuffer(3)
	_, _ = b.Write([]byte("abcdef"))
	assert.True(t, b.overflowed)

	n, err := b.Write([]byte("more"))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}
