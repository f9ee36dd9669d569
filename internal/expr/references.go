package expr

import "sort"

// Walk calls fn for n and then for each of its children, depth first.
// Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Unary:
		Walk(n.Operand, fn)
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *If:
		for _, br := range n.Branches {
			Walk(br.Cond, fn)
			Walk(br.Then, fn)
		}
		Walk(n.Else, fn)
	case *Block:
		for _, s := range n.Steps {
			Walk(s, fn)
		}
	}
}

// References returns the environment names n reads, sorted and without
// duplicates. Identifiers contribute their name and output references their
// Key.
func References(n Node) []string {
	seen := make(map[string]struct{})
	Walk(n, func(n Node) bool {
		switch n := n.(type) {
		case *Ident:
			seen[n.Name] = struct{}{}
		case *OutputRef:
			seen[n.Key()] = struct{}{}
		}
		return true
	})
	refs := make([]string, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}
