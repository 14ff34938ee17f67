package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact basenames within the output directory. The codec appends its
// extension.
const (
	EditsArtifact     = "edits"
	ClustersArtifact  = "clusters"
	TemplatesArtifact = "templates"
)

// Store reads and writes pipeline artifacts in one output directory.
type Store struct {
	dir   string
	codec Codec
}

// NewStore creates a store rooted at dir. The directory is created on the
// first save.
func NewStore(dir string, codec Codec) *Store {
	return &Store{dir: dir, codec: codec}
}

// Path returns the file path an artifact is stored at.
func (s *Store) Path(basename string) string {
	return filepath.Join(s.dir, basename+s.codec.Extension())
}

// Save writes an artifact under its basename.
func (s *Store) Save(basename string, artifact any) error {
	err := os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	path := s.Path(basename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer file.Close()

	err = s.codec.Encode(file, artifact)
	if err != nil {
		return fmt.Errorf("encode %s: %w", basename, err)
	}

	return nil
}

// Load reads an artifact into the given pointer.
func (s *Store) Load(basename string, artifact any) error {
	path := s.Path(basename)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact file: %w", err)
	}
	defer file.Close()

	err = s.codec.Decode(file, artifact)
	if err != nil {
		return fmt.Errorf("decode %s: %w", basename, err)
	}

	return nil
}
