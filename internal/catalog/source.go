package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Source produces candidate models.
type Source interface {
	Models(ctx context.Context) ([]types.DiscoveredModel, error)
}

// BinarySource runs the located catalog binary and decodes its stdout.
type BinarySource struct {
	locator *Locator
	args    []string
	timeout time.Duration
}

func NewBinarySource(locator *Locator, args []string, timeout time.Duration) *BinarySource {
	return &BinarySource{locator: locator, args: args, timeout: timeout}
}

func (s *BinarySource) Models(ctx context.Context) ([]types.DiscoveredModel, error) {
	path, err := s.locator.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, s.args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		s.locator.Invalidate()
		return nil, fmt.Errorf("run %s %s: %w: %s", path, strings.Join(s.args, " "), err, strings.TrimSpace(stderr.String()))
	}
	models, err := DecodeJSON(out)
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", path, err)
	}
	return models, nil
}

// FileSource reads candidates from a YAML or JSON file.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Models(ctx context.Context) ([]types.DiscoveredModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", s.path, err)
	}

	var models []types.DiscoveredModel
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		models, err = DecodeYAML(data)
	default:
		models, err = DecodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", s.path, err)
	}
	return models, nil
}

type modelList struct {
	Models []types.DiscoveredModel `json:"models" yaml:"models"`
}

// DecodeJSON accepts either a bare array or an object with a "models" array.
func DecodeJSON(data []byte) ([]types.DiscoveredModel, error) {
	data = bytes.TrimSpace(data)
	var models []types.DiscoveredModel
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &models); err != nil {
			return nil, err
		}
	} else {
		var list modelList
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		models = list.Models
	}
	return Normalize(models), nil
}

// DecodeYAML accepts either a sequence or a mapping with a "models" key.
func DecodeYAML(data []byte) ([]types.DiscoveredModel, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	var models []types.DiscoveredModel
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Decode(&models); err != nil {
			return nil, err
		}
	} else {
		var list modelList
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		models = list.Models
	}
	return Normalize(models), nil
}

// Normalize fills ProviderID and Name from the identifier, maps statuses
// onto the known set, and drops entries whose identifier is not of the form
// "provider/id". A missing status counts as active.
func Normalize(models []types.DiscoveredModel) []types.DiscoveredModel {
	out := make([]types.DiscoveredModel, 0, len(models))
	for _, m := range models {
		provider, id, ok := types.SplitModelID(m.Model)
		if !ok {
			continue
		}
		if m.ProviderID == "" {
			m.ProviderID = provider
		}
		if m.Name == "" {
			m.Name = id
		}
		if m.Status == "" {
			m.Status = types.StatusActive
		} else {
			m.Status = types.ParseStatus(string(m.Status))
		}
		out = append(out, m)
	}
	return out
}

// Merge concatenates lists and keeps the first candidate seen for each
// model identifier.
func Merge(lists ...[]types.DiscoveredModel) []types.DiscoveredModel {
	seen := make(map[string]struct{})
	var out []types.DiscoveredModel
	for _, list := range lists {
		for _, m := range list {
			if _, ok := seen[m.Model]; ok {
				continue
			}
			seen[m.Model] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
