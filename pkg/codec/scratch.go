package codec

import (
	"fmt"
	"os"
	"path/filepath"

	"adjpeg/pkg/models"
)

// Scratch is a temporary directory that owns the intermediate files of a
// codec round trip. Close removes it with everything inside.
type Scratch struct {
	dir string
	n   int
}

// NewScratch creates a scratch directory under parent, or under the system
// temporary directory when parent is empty
func NewScratch(parent string) (*Scratch, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, models.WrapError(models.InputError, err, "creating scratch parent %s", parent)
		}
	}
	dir, err := os.MkdirTemp(parent, "adjpeg-*")
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "creating scratch directory")
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the directory path
func (s *Scratch) Dir() string {
	return s.dir
}

// Path returns a fresh file path inside the scratch directory
func (s *Scratch) Path(name string) string {
	s.n++
	return filepath.Join(s.dir, fmt.Sprintf("%02d_%s", s.n, name))
}

// Close removes the directory and its contents
func (s *Scratch) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}
