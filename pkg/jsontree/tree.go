package jsontree

import "errors"

// Package jsontree holds an ordered, generic tree built from JSON documents.

// ErrNotLeaf is returned when a leaf value is requested from a container node.
var ErrNotLeaf = errors.New("jsontree: node is not a leaf")

// Kind identifies what a tree node was decoded from.
type Kind uint8

const (
	Object Kind = iota
	Array
	String
	Number
	Bool
	Null
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case Array:
		return "array"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Null:
		return "null"
	default:
		return "unknown"
	}
}

// Child is a named entry of a container node. Array elements carry an empty name.
type Child struct {
	Name string
	Tree *Tree
}

// Tree is an ordered list of named children, each either a leaf value or another tree.
// The zero value is an empty object.
type Tree struct {
	kind     Kind
	value    string
	children []Child
}

// New returns an empty object tree.
func New() *Tree { return &Tree{kind: Object} }

// NewArray returns an empty array tree.
func NewArray() *Tree { return &Tree{kind: Array} }

// NewLeaf returns a string leaf.
func NewLeaf(value string) *Tree { return &Tree{kind: String, value: value} }

func newScalar(kind Kind, value string) *Tree { return &Tree{kind: kind, value: value} }

// Kind reports the JSON kind the node was built from.
func (t *Tree) Kind() Kind {
	if t == nil {
		return Null
	}
	return t.kind
}

// IsLeaf reports whether the node holds a scalar value rather than children.
func (t *Tree) IsLeaf() bool {
	return t != nil && t.kind != Object && t.kind != Array
}

// Value returns the display string of a leaf. Null leaves render as "null".
func (t *Tree) Value() string {
	if t == nil {
		return ""
	}
	if t.kind == Null {
		return "null"
	}
	return t.value
}

// LeafValue is Value with an error for container nodes.
func (t *Tree) LeafValue() (string, error) {
	if !t.IsLeaf() {
		return "", ErrNotLeaf
	}
	return t.Value(), nil
}

// Len returns the number of direct children.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.children)
}

// Children returns a copy of the direct children in document order.
func (t *Tree) Children() []Child {
	if t == nil || len(t.children) == 0 {
		return nil
	}
	out := make([]Child, len(t.children))
	copy(out, t.children)
	return out
}

// Child returns the first direct child with the exact name.
func (t *Tree) Child(name string) (*Tree, bool) {
	if t == nil {
		return nil, false
	}
	for _, c := range t.children {
		if c.Name == name {
			return c.Tree, true
		}
	}
	return nil, false
}

// HasChild reports whether a direct child with the exact name exists.
func (t *Tree) HasChild(name string) bool {
	_, ok := t.Child(name)
	return ok
}

// Add appends a child, keeping any existing children with the same name.
func (t *Tree) Add(name string, child *Tree) {
	if child == nil {
		child = newScalar(Null, "")
	}
	t.children = append(t.children, Child{Name: name, Tree: child})
}

// Put sets a string leaf under name, replacing the first existing child of that name.
func (t *Tree) Put(name, value string) {
	for i, c := range t.children {
		if c.Name == name {
			t.children[i].Tree = NewLeaf(value)
			return
		}
	}
	t.Add(name, NewLeaf(value))
}

// Equal reports whether both trees have the same kinds, values and children in the same order.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.kind != other.kind || t.value != other.value || len(t.children) != len(other.children) {
		return false
	}
	for i := range t.children {
		if t.children[i].Name != other.children[i].Name {
			return false
		}
		if !t.children[i].Tree.Equal(other.children[i].Tree) {
			return false
		}
	}
	return true
}
