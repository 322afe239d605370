package config

// NavNode is one entry of the recursive navigation tree: either a Link
// (Label + Link target) or a Section (Label + Children and/or an
// Autogenerate rule). A node declaring both or neither is rejected by
// Validate.
type NavNode struct {
	Label        string       `yaml:"label"`
	Link         string       `yaml:"link"`
	Children     []*NavNode   `yaml:"children"`
	Collapsed    bool         `yaml:"collapsed"`
	Autogenerate *AutogenRule `yaml:"autogenerate"`
}

// AutogenRule derives a section's children at build time from a directory's
// file set; the children are never stored in the configuration.
type AutogenRule struct {
	Dir string `yaml:"dir"`
}

// IsLink reports whether the node is a page link.
func (n *NavNode) IsLink() bool {
	return n.Link != ""
}

// IsSection reports whether the node is a labeled group.
func (n *NavNode) IsSection() bool {
	return len(n.Children) > 0 || n.Autogenerate != nil
}

// Walk visits the node and all descendants depth-first in declaration
// order. Autogenerated children do not exist yet at config time and are
// therefore not visited.
func (n *NavNode) Walk(visit func(node *NavNode, depth int)) {
	n.walk(visit, 0)
}

func (n *NavNode) walk(visit func(node *NavNode, depth int), depth int) {
	visit(n, depth)
	for _, child := range n.Children {
		child.walk(visit, depth+1)
	}
}

// Links collects every Link target in the subtree in declaration order.
func (n *NavNode) Links() []string {
	var targets []string
	n.Walk(func(node *NavNode, _ int) {
		if node.IsLink() {
			targets = append(targets, node.Link)
		}
	})
	return targets
}
