package preferences

import (
	"context"
	"errors"

	"github.com/af-corp/aegis-modelplan/internal/planconfig"
)

// Store reads and writes the persisted configuration.
type Store interface {
	Path() string
	Load(ctx context.Context) (*planconfig.Config, error)
	// Save replaces the configuration and returns the backup path, or ""
	// when there was no previous file.
	Save(ctx context.Context, cfg *planconfig.Config) (string, error)
}

// FileStore is a Store over one file on disk. A missing file loads as an
// empty configuration.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*planconfig.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := planconfig.ReadFile(s.path)
	if errors.Is(err, planconfig.ErrNotFound) {
		return &planconfig.Config{}, nil
	}
	return cfg, err
}

func (s *FileStore) Save(ctx context.Context, cfg *planconfig.Config) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return planconfig.WriteFile(s.path, cfg)
}
