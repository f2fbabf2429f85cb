package schema

import (
	"sort"
	"strconv"
	"strings"
)

// Kind tells how a Node is shaped.
type Kind int

const (
	KindLeaf Kind = iota
	KindObject
	KindArray
)

// Node is one element of the schema tree.
//   - KindLeaf carries a declared Type.
//   - KindObject carries named Fields.
//   - KindArray carries the Elem node shared by every element.
type Node struct {
	Kind   Kind
	Type   TypeTag
	Fields map[string]*Node
	Elem   *Node
}

// Field declares a leaf of the given type name.
func Field(typeName string) *Node {
	return &Node{Kind: KindLeaf, Type: NormalizeType(typeName)}
}

// Object declares a sub-document.
func Object(fields map[string]*Node) *Node {
	if fields == nil {
		fields = map[string]*Node{}
	}
	return &Node{Kind: KindObject, Fields: fields}
}

// ArrayOf declares an array whose elements follow elem. A nil elem means an
// array of unknown values.
func ArrayOf(elem *Node) *Node {
	if elem == nil {
		elem = &Node{Kind: KindLeaf, Type: TypeUnknown}
	}
	return &Node{Kind: KindArray, Elem: elem}
}

// TypeTag returns the tag reported for the node itself.
func (n *Node) TypeTag() TypeTag {
	switch n.Kind {
	case KindObject:
		return TypeObject
	case KindArray:
		return TypeArray
	}
	if n.Type == "" {
		return TypeUnknown
	}
	return n.Type
}

func (n *Node) child(name string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	return n.Fields[name]
}

// walk follows segs from n. Numeric segments index into arrays. With
// throughArrays set, a named segment met on an array descends into the
// element node first, so "line_items.barcode" reaches the barcode of the
// line_items element.
func (n *Node) walk(segs []string, throughArrays bool) *Node {
	cur := n
	for _, seg := range segs {
		if cur == nil {
			return nil
		}
		switch cur.Kind {
		case KindObject:
			cur = cur.Fields[seg]
		case KindArray:
			if _, err := strconv.Atoi(seg); err == nil {
				cur = cur.Elem
				continue
			}
			if !throughArrays {
				return nil
			}
			cur = cur.Elem.child(seg)
		default:
			return nil
		}
	}
	return cur
}

// Schema is an immutable field tree rooted at an object node.
type Schema struct {
	root *Node
}

// New builds a schema from its top-level fields.
func New(fields map[string]*Node) *Schema {
	return &Schema{root: Object(fields)}
}

// FieldSpec is the resolution of one dotted path.
type FieldSpec struct {
	Path   string
	Exists bool
	Type   TypeTag
	Cast   Caster
}

// Resolve looks up path: first literally, then through array elements at
// every dot boundary, and finally by the type of the first path segment.
func (s *Schema) Resolve(path string) FieldSpec {
	spec := FieldSpec{Path: path, Type: TypeUnknown, Cast: identity}
	if s == nil || s.root == nil || path == "" {
		return spec
	}
	segs := strings.Split(path, ".")

	node := s.root.walk(segs, false)
	if node == nil && len(segs) > 1 {
		node = s.root.walk(segs, true)
	}
	if node == nil && len(segs) > 1 {
		node = s.root.child(segs[0])
	}
	if node == nil {
		return spec
	}

	spec.Exists = true
	spec.Type = node.TypeTag()
	spec.Cast = CasterFor(spec.Type)
	return spec
}

// Lookup returns the node at path without any fallback.
func (s *Schema) Lookup(path string) *Node {
	if s == nil || s.root == nil {
		return nil
	}
	return s.root.walk(strings.Split(path, "."), false)
}

// TopLevel returns the names of the root fields in sorted order.
func (s *Schema) TopLevel() []string {
	if s == nil || s.root == nil {
		return nil
	}
	names := make([]string, 0, len(s.root.Fields))
	for name := range s.root.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
