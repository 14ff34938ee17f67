package gitlib

import (
	"bytes"

	git2go "github.com/libgit2/git2go/v34"
)

// Blob wraps a libgit2 blob.
type Blob struct {
	blob *git2go.Blob
}

// Hash returns the blob hash.
func (b *Blob) Hash() Hash {
	return HashFromOid(b.blob.Id())
}

// Size returns the blob size in bytes.
func (b *Blob) Size() int64 {
	return b.blob.Size()
}

// Contents returns the blob contents. The slice is owned by libgit2 and is
// only valid until the blob is freed.
func (b *Blob) Contents() []byte {
	return b.blob.Contents()
}

// IsBinary reports whether the blob looks like binary data (contains a NUL
// byte in the first 8000 bytes, matching git's heuristic).
func (b *Blob) IsBinary() bool {
	data := b.blob.Contents()

	probe := data
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}

	return bytes.IndexByte(probe, 0) >= 0
}

// binaryProbeSize is the number of leading bytes inspected for NUL, matching
// git's buffer_is_binary check.
const binaryProbeSize = 8000

// Free releases the blob resources.
func (b *Blob) Free() {
	if b.blob != nil {
		b.blob.Free()
		b.blob = nil
	}
}
