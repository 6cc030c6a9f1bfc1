package method

import (
	G "gorgonia.org/gorgonia"
)

// addErr combines per-step loss nodes. Either argument may be nil,
// meaning that objective contributes no loss.
func addErr(a, b *G.Node) *G.Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return G.Must(G.Add(a, b))
}
