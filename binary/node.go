// Package binary provides the tree representation of the binary protocol
// nodes exchanged with the messaging service, and the accessors used to
// navigate response trees.
//
// Encoding a Node to bytes and parsing bytes back into a tree is the job
// of the transport; this package only models the decoded tree.
package binary

import (
	"strconv"
	"strings"
)

// Well-known server addresses.
const (
	ServerJID = "s.whatsapp.net"
)

// Attrs holds the string attributes of a node.
type Attrs map[string]string

// Node is a single element of a binary response tree. A node carries
// either raw Content or an ordered list of Children, never both.
type Node struct {
	Tag      string
	Attrs    Attrs
	Content  []byte
	Children []*Node
}

// Attr returns the named attribute, or "" when the node or attribute is absent.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets an attribute, allocating the attribute map if needed.
func (n *Node) SetAttr(key, value string) {
	if n.Attrs == nil {
		n.Attrs = make(Attrs)
	}
	n.Attrs[key] = value
}

// IntAttr parses the named attribute as a base 10 integer, ignoring
// surrounding whitespace. Missing or non-numeric values yield 0.
func (n *Node) IntAttr(key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(n.Attr(key)))
	if err != nil {
		return 0
	}
	return v
}

// GetChild returns the first child of node with the given tag, or nil.
// Tags are not unique; callers rely on first-match semantics.
func GetChild(node *Node, tag string) *Node {
	if node == nil {
		return nil
	}
	for _, child := range node.Children {
		if child != nil && child.Tag == tag {
			return child
		}
	}
	return nil
}

// GetChildren returns every child of node with the given tag, in order.
// The result is empty (never nil) when node is nil or nothing matches.
func GetChildren(node *Node, tag string) []*Node {
	children := make([]*Node, 0)
	if node == nil {
		return children
	}
	for _, child := range node.Children {
		if child != nil && child.Tag == tag {
			children = append(children, child)
		}
	}
	return children
}

// GetAllChildren returns all children of node regardless of tag.
func GetAllChildren(node *Node) []*Node {
	if node == nil {
		return []*Node{}
	}
	children := make([]*Node, 0, len(node.Children))
	for _, child := range node.Children {
		if child != nil {
			children = append(children, child)
		}
	}
	return children
}
