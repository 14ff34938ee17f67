package persist

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec wraps another codec with LZ4 frame compression. Large mined edit
// sets shrink well; the syntax trees repeat the same kinds over and over.
type LZ4Codec struct {
	inner Codec
}

// NewLZ4Codec creates an LZ4 compression wrapper around the given codec.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{inner: inner}
}

// Encode implements Codec.Encode by compressing the inner codec's output.
func (c *LZ4Codec) Encode(w io.Writer, artifact any) error {
	zw := lz4.NewWriter(w)

	err := c.inner.Encode(zw, artifact)
	if err != nil {
		return fmt.Errorf("lz4 encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 flush: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode by decompressing before the inner codec.
func (c *LZ4Codec) Decode(r io.Reader, artifact any) error {
	err := c.inner.Decode(lz4.NewReader(r), artifact)
	if err != nil {
		return fmt.Errorf("lz4 decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension by suffixing the inner extension.
func (c *LZ4Codec) Extension() string {
	return c.inner.Extension() + ".lz4"
}
