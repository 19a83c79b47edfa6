package analyzer

import (
	"fmt"
	"sort"
	"strings"
)

// Analysis is the parsed state of one document version
type Analysis struct {
	URI     string
	Version int32
	Defs    []string
	Pre     *Preprocessed
	Tree    *Tree
}

// Analyze preprocesses src against defs and parses the result. Offsets in
// the tree are offsets into src.
func Analyze(uri string, version int32, src string, defs map[string]bool) *Analysis {
	pre := Preprocess(src, defs)
	return &Analysis{
		URI:     uri,
		Version: version,
		Defs:    sortedDefs(defs),
		Pre:     pre,
		Tree:    Parse(pre.Text),
	}
}

func sortedDefs(defs map[string]bool) []string {
	out := make([]string, 0, len(defs))
	for d, on := range defs {
		if on {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// Debug renders a free-text dump of the analyzer state at offset. position
// is the human-readable line:column of offset.
func (a *Analysis) Debug(offset int, position string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "file: %s (version %d)\n", a.URI, a.Version)
	fmt.Fprintf(&b, "position: %s (offset %d of %d)\n", position, offset, len(a.Pre.Source))

	tok := a.Tree.TokenAt(offset)
	if tok == nil {
		b.WriteString("token: (none)\n")
	} else {
		fmt.Fprintf(&b, "token: %s\n", tok.Label())
		b.WriteString("ancestors:\n")
		for _, anc := range Ancestors(tok) {
			fmt.Fprintf(&b, "  %s\n", anc.Label())
		}
		if item := enclosingItem(tok); item != nil {
			name := item.Name()
			if name == "" {
				name = "(anonymous)"
			}
			fmt.Fprintf(&b, "item: %s %s\n", item.Kind, name)
		}
	}

	if u, ok := a.Pre.IsUnconfigured(offset); ok {
		fmt.Fprintf(&b, "unconfigured: yes, disabled by %q (%d..%d)\n", u.Def, u.Start, u.End)
	}
	if len(a.Defs) == 0 {
		b.WriteString("shader defs: (none)\n")
	} else {
		fmt.Fprintf(&b, "shader defs: %s\n", strings.Join(a.Defs, ", "))
	}
	fmt.Fprintf(&b, "unconfigured ranges: %d\n", len(a.Pre.Unconfigured))
	if keys := a.Pre.ImportKeys(); len(keys) > 0 {
		fmt.Fprintf(&b, "imports: %s\n", strings.Join(keys, ", "))
	}
	return b.String()
}

// enclosingItem returns the top-level item containing n
func enclosingItem(n *Node) *Node {
	var item *Node
	for p := n; p != nil && p.Parent != nil; p = p.Parent {
		item = p
	}
	if item == nil || item.IsToken() {
		return nil
	}
	return item
}
