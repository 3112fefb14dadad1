package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource reads entries from a YAML or JSON document of the form
// {"signals": [{"key": ..., "qualityScore": ...}, ...]}. YAML files use
// snake_case field names.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type signalFile struct {
	Signals []Entry `json:"signals" yaml:"signals"`
}

func (s *FileSource) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read signal file %s: %w", s.path, err)
	}

	var doc signalFile
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse signal file %s: %w", s.path, err)
	}
	return doc.Signals, nil
}
