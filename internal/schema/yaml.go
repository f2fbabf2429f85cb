package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML reads a field declaration:
//
//	shop_id: number              # leaf
//	created_at: {type: date}     # type descriptor, extra keys ignored
//	customer: {name: string}     # sub-document
//	line_items: [{barcode: string}]
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	node, err := decodeNode(value, "")
	if err != nil {
		return err
	}
	*n = *node
	return nil
}

// UnmarshalYAML reads the top-level field mapping of a schema.
func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema fields must be a mapping", value.Line)
	}
	root, err := decodeNode(value, "")
	if err != nil {
		return err
	}
	s.root = root
	return nil
}

func decodeNode(value *yaml.Node, path string) (*Node, error) {
	switch value.Kind {
	case yaml.AliasNode:
		return decodeNode(value.Alias, path)

	case yaml.ScalarNode:
		if !IsKnownType(value.Value) {
			return nil, fmt.Errorf("line %d: unknown type value '%s' in field %s", value.Line, value.Value, label(path))
		}
		return Field(value.Value), nil

	case yaml.SequenceNode:
		switch len(value.Content) {
		case 0:
			return ArrayOf(nil), nil
		case 1:
			elem, err := decodeNode(value.Content[0], path+".[]")
			if err != nil {
				return nil, err
			}
			return ArrayOf(elem), nil
		}
		return nil, fmt.Errorf("line %d: array field %s must declare exactly one element type", value.Line, label(path))

	case yaml.MappingNode:
		// {type: X, ...} is a descriptor, not a sub-document
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value == "type" && value.Content[i+1].Kind != yaml.MappingNode {
				return decodeNode(value.Content[i+1], path)
			}
		}
		fields := make(map[string]*Node, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i].Value
			if _, dup := fields[key]; dup {
				return nil, fmt.Errorf("line %d: duplicate field %s", value.Content[i].Line, label(join(path, key)))
			}
			child, err := decodeNode(value.Content[i+1], join(path, key))
			if err != nil {
				return nil, err
			}
			fields[key] = child
		}
		return Object(fields), nil
	}
	return nil, fmt.Errorf("line %d: unsupported declaration for field %s", value.Line, label(path))
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func label(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
