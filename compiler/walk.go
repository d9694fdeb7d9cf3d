package compiler

// Inspect traverses the tree rooted at node in depth-first order, calling fn
// for each node. Children are skipped when fn returns false.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Inspect(child, fn)
	}
}

// FindNodeAt returns the innermost nodes containing pos, outermost first.
// The result is empty when no node of the tree covers pos.
func FindNodeAt(root Node, pos Position) []Node {
	var path []Node
	node := root
	for node != nil && node.Range().Contains(pos) {
		path = append(path, node)
		var next Node
		for _, child := range node.Children() {
			if child.Range().Contains(pos) {
				next = child
				break
			}
		}
		node = next
	}
	return path
}
