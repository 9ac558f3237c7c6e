package dict

// Graphviz prints out the trie topology. Mostly for debugging; could
// be quite slow.

import (
	"fmt"
	"io"
)

func (d *Dictionary) Graphviz(w io.Writer) {
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  // patricia edges")
	for i := range d.words.nodes {
		n := &d.words.nodes[i]
		if n.terminal {
			fmt.Fprintf(w, "  %d [peripheries=2,xlabel=%q]\n", i, fmt.Sprintf("p=%d", n.unigram.Probability))
		}
		for _, c := range n.children {
			fmt.Fprintf(w, "  %d -> %d [label=%q]\n", i, c, string(d.words.nodes[c].label))
		}
	}
	fmt.Fprintln(w, "  // bigram edges")
	for root := range d.bigrams.m.Entries(0) {
		for _, e := range d.bigrams.edgesOf(Position(root.Key)) {
			fmt.Fprintf(w, "  %d -> %d [label=%q,style=dashed]\n", root.Key, e.target, fmt.Sprintf("%d", e.probability))
		}
	}
	fmt.Fprintln(w, "}")
}
