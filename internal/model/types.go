package model

import (
	"QueryFilter/internal/parser"
	"QueryFilter/internal/schema"
)

// Model описывает коллекцию: таблицу и правила разбора запросов к ней
type Model struct {
	Name         string              `yaml:"-"` // logical name, taken from the file name
	Table        string              `yaml:"table"`
	Fields       *schema.Schema      `yaml:"fields"`
	PrimaryKeys  []string            `yaml:"primary_keys"` // optional, e.g. ["id"]
	Required     []string            `yaml:"required"`
	AllowList    []string            `yaml:"allow_list"`
	DenyList     []string            `yaml:"deny_list"`
	Alias        map[string]string   `yaml:"alias"`
	Defaults     map[string]any      `yaml:"defaults"`
	DeniedValues []any               `yaml:"denied_values"`
	Search       map[string][]string `yaml:"search"` // query key -> fields matched with $or

	// для runtime (не сериализуется)
	_Parser *parser.Parser `yaml:"-"`
}

// GetPrimaryKeys возвращает список полей первичного ключа для модели.
// Если не задано в конфиге, по умолчанию возвращает ["id"].
func (m *Model) GetPrimaryKeys() []string {
	if len(m.PrimaryKeys) > 0 {
		return m.PrimaryKeys
	}
	return []string{"id"}
}

// Parser returns the compiled query parser; nil until the model is registered.
func (m *Model) Parser() *parser.Parser {
	return m._Parser
}
