package analyzer

import "strings"

// Format renders the whole tree, one node per line, indented two spaces per
// depth.
func (t *Tree) Format() string {
	return t.render(func(*Node) bool { return true })
}

// FormatSpan renders only the nodes intersecting the byte span [start, end).
// The root is always rendered. An empty span selects the nodes touching the
// offset.
func (t *Tree) FormatSpan(start, end int) string {
	return t.render(func(n *Node) bool { return intersects(n, start, end) })
}

func (t *Tree) render(keep func(*Node) bool) string {
	var b strings.Builder
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if depth > 0 && !keep(n) {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Label())
		b.WriteByte('\n')
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
	return b.String()
}

func intersects(n *Node, start, end int) bool {
	if start == end {
		return n.Start <= start && start <= n.End
	}
	if n.Start == n.End {
		return start <= n.Start && n.Start < end
	}
	return n.Start < end && start < n.End
}
