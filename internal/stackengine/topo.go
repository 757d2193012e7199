package stackengine

import (
	"golang.org/x/exp/slices"

	"maguffin.dev/stackengine/internal/meta"
)

// TopoOrder returns stack's branches in the unique in-stack order a
// depth-first walk from the root produces: for each node, visit the
// branches whose Parent equals that node's name, ties broken by each
// branch's insertion position in the document (its Branches map key order
// is not meaningful in Go, so CreatedAt -- monotonic per CreateStackBranch
// call -- stands in for "insertion order"). Invariant II guarantees the
// forest is acyclic; the visited set here is defensive, not load-bearing.
func TopoOrder(stack *meta.Stack) []string {
	children := childrenByParent(stack)

	var order []string
	visited := make(map[string]bool, len(stack.Branches))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		if _, isBranch := stack.Branches[name]; isBranch {
			order = append(order, name)
		}
		for _, child := range children[name] {
			visit(child)
		}
	}
	visit(stack.Root)

	return order
}

func childrenByParent(stack *meta.Stack) map[string][]string {
	children := make(map[string][]string)
	for name := range stack.Branches {
		children[stack.Branches[name].Parent] = append(children[stack.Branches[name].Parent], name)
	}
	for parent, kids := range children {
		sortByCreatedAt(stack, kids)
		children[parent] = kids
	}
	return children
}

func sortByCreatedAt(stack *meta.Stack, names []string) {
	slices.SortFunc(names, func(a, b string) int {
		return stack.Branches[a].CreatedAt.Compare(stack.Branches[b].CreatedAt)
	})
}
