package rules

import "fmt"

// SerializedNode is the canonical JSON shape of one tree node: children is
// present if and only if the node is an operator. Constant and variable
// nodes carry no extra payload — their behavior lives entirely in the
// registered spec.
type SerializedNode struct {
	NodeName string            `json:"node_name"`
	Children []*SerializedNode `json:"children,omitempty"`
}

// SerializeTree converts a live node tree into its canonical JSON shape.
func SerializeTree(n Node) *SerializedNode {
	sn := &SerializedNode{NodeName: n.NodeName()}
	for _, child := range childrenOf(n) {
		sn.Children = append(sn.Children, SerializeTree(child))
	}
	return sn
}

func childrenOf(n Node) []Node {
	switch t := n.(type) {
	case *FunctionalOperatorNode:
		return t.Children
	case *BranchOperatorNode:
		return t.childList()
	default:
		return nil
	}
}

// ParseTree reconstructs a live node tree from its canonical JSON shape,
// using registry to resolve node names to specs and re-construct each
// node bottom-up.
func ParseTree(registry *Registry, sn *SerializedNode) (Node, error) {
	if sn == nil {
		return nil, fmt.Errorf("rules: cannot parse a nil node")
	}
	children := make([]Node, 0, len(sn.Children))
	for _, childSn := range sn.Children {
		child, err := ParseTree(registry, childSn)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	node, err := registry.CreateNode(sn.NodeName, nil, children)
	if err != nil {
		return nil, fmt.Errorf("rules: parsing node %q: %w", sn.NodeName, err)
	}
	return node, nil
}
