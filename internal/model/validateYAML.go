package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedModelKeys = map[string]bool{
	"table":         true,
	"fields":        true,
	"primary_keys":  true,
	"required":      true,
	"allow_list":    true,
	"deny_list":     true,
	"alias":         true,
	"defaults":      true,
	"denied_values": true,
	"search":        true,
}

// ключи, значением которых должен быть список скаляров
var scalarListKeys = map[string]bool{
	"primary_keys": true,
	"required":     true,
	"allow_list":   true,
	"deny_list":    true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "model"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		if context == "alias-map" || context == "search-map" {
			return validateNamedEntries(node, context)
		}
		if context != "model" {
			return nil
		}
		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if !allowedModelKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s", key, context)
			}

			switch {
			case key == "table":
				if valNode.Kind != yaml.ScalarNode || valNode.Value == "" {
					return fmt.Errorf("'table' must be a non-empty string")
				}
			case key == "fields" || key == "defaults":
				if valNode.Kind != yaml.MappingNode {
					return fmt.Errorf("'%s' must be a mapping", key)
				}
			case scalarListKeys[key]:
				if err := expectScalarList(valNode, key); err != nil {
					return err
				}
			case key == "denied_values":
				if valNode.Kind != yaml.SequenceNode {
					return fmt.Errorf("'denied_values' must be a list")
				}
			case key == "alias":
				if err := validateYAMLNode(valNode, "alias-map"); err != nil {
					return err
				}
			case key == "search":
				if err := validateYAMLNode(valNode, "search-map"); err != nil {
					return err
				}
			}
		}

	case yaml.ScalarNode:
		if context == "alias-map" || context == "search-map" {
			return fmt.Errorf("'%s' must be a mapping", mapKeyName(context))
		}
	}

	return nil
}

// validateNamedEntries checks alias (name -> path) and search
// (key -> [paths]) mappings.
func validateNamedEntries(node *yaml.Node, context string) error {
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		val := node.Content[i+1]
		if context == "alias-map" {
			if val.Kind != yaml.ScalarNode || val.Value == "" {
				return fmt.Errorf("alias '%s' must map to a field path", name)
			}
			continue
		}
		if err := expectScalarList(val, "search."+name); err != nil {
			return err
		}
		if len(val.Content) == 0 {
			return fmt.Errorf("search '%s' needs at least one field", name)
		}
	}
	return nil
}

func expectScalarList(node *yaml.Node, key string) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("'%s' must be a list", key)
	}
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("'%s' must only hold strings", key)
		}
	}
	return nil
}

func mapKeyName(context string) string {
	if context == "alias-map" {
		return "alias"
	}
	return "search"
}
