// Package persist stores and reloads the pipeline's artifacts: mined edit
// sets, clusters, and template sets.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	gobExtension  = ".gob"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// ErrUnknownFormat indicates an unrecognized codec name.
var ErrUnknownFormat = errors.New("unknown artifact format")

// Codec defines how an artifact is serialized and deserialized.
type Codec interface {
	// Encode writes the artifact to the writer.
	Encode(w io.Writer, artifact any) error
	// Decode reads the artifact from the reader.
	Decode(r io.Reader, artifact any) error
	// Extension returns the file extension for this codec (e.g., ".json").
	Extension() string
}

// CodecFor returns the codec for a format name: "json", "gob", or "lz4"
// (LZ4-compressed JSON).
func CodecFor(format string) (Codec, error) {
	switch format {
	case "json", "":
		return NewJSONCodec(), nil
	case "gob":
		return NewGobCodec(), nil
	case "lz4":
		return NewLZ4Codec(NewJSONCodec()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, artifact any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(artifact)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, artifact any) error {
	decoder := json.NewDecoder(r)

	err := decoder.Decode(artifact)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// GobCodec implements Codec using gob encoding.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.Encode using gob encoding.
func (c *GobCodec) Encode(w io.Writer, artifact any) error {
	encoder := gob.NewEncoder(w)

	err := encoder.Encode(artifact)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, artifact any) error {
	decoder := gob.NewDecoder(r)

	err := decoder.Decode(artifact)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for gob files.
func (c *GobCodec) Extension() string {
	return gobExtension
}
