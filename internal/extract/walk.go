package extract

import sitter "github.com/smacker/go-tree-sitter"

// action tells walk what to do after visiting a node.
type action int

const (
	// descend visits the node's children next.
	descend action = iota
	// skip moves on to the next sibling without visiting children.
	skip
	// stop ends the walk.
	stop
)

// walk visits root and its descendants in pre-order (source order) without
// recursion.
func walk(root *sitter.Node, visit func(*sitter.Node) action) {
	if root == nil {
		return
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch visit(node) {
		case stop:
			return
		case skip:
			continue
		}

		// Push in reverse so the first child is popped first.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// firstOfType returns the first node of the given type under root in
// pre-order, or nil.
func firstOfType(root *sitter.Node, nodeType string) *sitter.Node {
	var found *sitter.Node
	walk(root, func(n *sitter.Node) action {
		if n.Type() == nodeType {
			found = n
			return stop
		}
		return descend
	})
	return found
}
