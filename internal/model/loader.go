package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"QueryFilter/internal/logger"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// LoadModelsFromDir reads every *.yml of dir. A broken file does not stop
// the others from loading; all failures are returned together.
func LoadModelsFromDir(dir string) ([]*Model, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var (
		models []*Model
		result *multierror.Error
	)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m, err := ParseModel(name, data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		models = append(models, m)
		logger.Info("model_loaded", map[string]any{
			"model":  name,
			"table":  m.Table,
			"fields": len(m.Fields.TopLevel()),
		})
	}
	return models, result.ErrorOrNil()
}

// ParseModel decodes one collection document.
func ParseModel(name string, data []byte) (*Model, error) {
	// 1. Разбираем в yaml.Node для структурной валидации
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	// YAML всегда [0] - документ, [1] - root mapping
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}

	if err := validateYAMLNode(&root, "model"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. Теперь уже Unmarshal в модель
	var m Model
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	if m.Fields == nil {
		return nil, fmt.Errorf("'fields' is required")
	}
	if m.Table == "" {
		m.Table = name
	}
	m.Name = name
	return &m, nil
}
