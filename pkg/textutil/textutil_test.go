package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary_EmptyData(t *testing.T) {
	t.Parallel()

	assert.False(t, IsBinary(nil))
	assert.False(t, IsBinary([]byte{}))
}

func TestIsBinary_PureText(t *testing.T) {
	t.Parallel()

	assert.False(t, IsBinary([]byte("hello world\n")))
}

func TestIsBinary_NullByte(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBinary([]byte("hello\x00world")))
}

func TestIsBinary_NullAtStart(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBinary([]byte("\x00start")))
}

func TestIsBinary_NullAtSniffBoundary(t *testing.T) {
	t.Parallel()

	// Null byte at exactly position BinarySniffLength-1 should be detected.
	data := make([]byte, BinarySniffLength)
	data[BinarySniffLength-1] = 0x00

	assert.True(t, IsBinary(data))
}

func TestIsBinary_NullBeyondSniffBoundary(t *testing.T) {
	t.Parallel()

	// Null byte beyond the sniff window should NOT be detected.
	data := make([]byte, BinarySniffLength+100)
	for i := range data {
		data[i] = 'a'
	}

	data[BinarySniffLength+50] = 0x00

	assert.False(t, IsBinary(data))
}

func TestIsBinary_ShortDataNoNull(t *testing.T) {
	t.Parallel()

	assert.False(t, IsBinary([]byte("short")))
}
