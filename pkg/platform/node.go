package platform

import "strings"

// Node is one element in the structural change feed. It is the
// host-agnostic stand-in for a DOM element: the production feed maps
// real elements into this shape, the test harness builds them directly.
type Node struct {
	Tag      string
	Classes  []string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

func (n *Node) HasClass(class string) bool {
	if n == nil {
		return false
	}
	for _, c := range n.Classes {
		if c == class {
			return true
		}
	}
	return false
}

func (n *Node) HasAnyClass(classes []string) bool {
	for _, c := range classes {
		if n.HasClass(c) {
			return true
		}
	}
	return false
}

func (n *Node) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// Walk visits n and its descendants in document order. Returning
// false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// FindByClass returns the first node (document order) carrying any of
// the given classes, or nil.
func (n *Node) FindByClass(classes []string) *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if node.HasAnyClass(classes) {
			found = node
			return false
		}
		return true
	})
	return found
}

// TextContent returns the node's own text, or the concatenated text
// of its descendants when the node itself has none.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if strings.TrimSpace(n.Text) != "" {
		return strings.TrimSpace(n.Text)
	}
	var parts []string
	for _, child := range n.Children {
		if t := child.TextContent(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
