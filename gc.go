package dict

// Garbage collection and migration. In-place updates leave
// tombstoned index entries and superseded records behind; once they
// pass a threshold the whole store is rewritten compactly by
// re-inserting every terminal, in traversal order, into a fresh
// store. Migration is the same rewrite across a format-version
// boundary.

import (
	"errors"
	"flag"
	"sort"
)

var (
	gcLenientGarbage = 1024
	gcStrictGarbage  = 64
)

func init() {
	flag.IntVar(&gcLenientGarbage, "dict.gc_garbage", gcLenientGarbage, "garbage units before needsToRunGC trips")
	flag.IntVar(&gcStrictGarbage, "dict.gc_garbage_strict", gcStrictGarbage, "garbage units before needsToRunGC(mindsBlockByGC) trips")
}

func (d *Dictionary) garbageUnits() int {
	return d.words.garbage + d.bigrams.garbage()
}

// NeedsToRunGC probes the fragmentation thresholds. With
// mindsBlockByGC the threshold is stricter, so callers that can
// afford the rewrite pause take it earlier.
func (d *Dictionary) NeedsToRunGC(mindsBlockByGC bool) bool {
	advanceClock()
	if !d.updatable {
		return false
	}
	units := d.garbageUnits()
	if units == 0 {
		return false
	}
	live := len(d.words.nodes) + len(d.bigrams.m.entries)
	lenient := units >= gcLenientGarbage || units*4 >= live
	if mindsBlockByGC {
		return lenient || units >= gcStrictGarbage
	}
	return lenient
}

// compactTo rebuilds the dictionary into a fresh store at the given
// format version. Terminal positions are reassigned; the source is
// untouched. Fails on the first refused insertion.
func (d *Dictionary) compactTo(version FormatVersion) (*Dictionary, error) {
	if !version.Supported() {
		return nil, ErrUnsupportedVersion
	}
	nd := &Dictionary{
		header:    d.header.copy(),
		words:     newWordStore(),
		bigrams:   newBigramStore(),
		updatable: true,
		cacheGen:  ^uint64(0),
	}
	nd.header.Version = version
	nd.header.OptionFlags &^= headerFlagFastFlushed

	// First pass: re-insert every terminal in traversal order and
	// record the position remapping.
	remap := make(map[Position]Position, d.words.terminals)
	order := make([]Position, 0, d.words.terminals)
	var insertErr error
	d.words.forEachTerminal(func(pos Position, word []rune) bool {
		up := d.words.nodes[pos].unigram.copy()
		np := nd.words.insert(word, &up)
		if np == NOT_A_DICT_POS {
			insertErr = errors.New("dict: word store full during compaction")
			return false
		}
		remap[pos] = np
		order = append(order, pos)
		return true
	})
	if insertErr != nil {
		return nil, insertErr
	}

	// Second pass: carry the bigram edges over with remapped
	// positions. Tombstoned edges die here. Edges are added in order of
	// their new target position so the rebuilt chains, and hence the
	// written bytes, do not depend on the source's chain order.
	for _, src := range order {
		edges := d.bigrams.edgesOf(src)
		sort.Slice(edges, func(i, j int) bool { return remap[edges[i].target] < remap[edges[j].target] })
		for _, e := range edges {
			ntgt, ok := remap[e.target]
			if !ok {
				return nil, errDanglingBigram
			}
			if !nd.bigrams.add(remap[src], ntgt, e.probability, e.historical) {
				return nil, errors.New("dict: bigram store full during compaction")
			}
		}
	}
	// Splits during the rebuild superseded nothing on disk; the fresh
	// store starts with a clean slate.
	nd.words.garbage = 0
	return nd, nil
}

// adopt swaps the compacted stores into the live handle. Terminal
// positions and iteration tokens minted before this are dead; the
// epoch bump makes stale tokens detectable.
func (d *Dictionary) adopt(nd *Dictionary) {
	d.header = nd.header
	d.words = nd.words
	d.bigrams = nd.bigrams
	d.gcEpoch++
	d.mutGen++
	d.termCache = nil
}

// Migrate rebuilds the dictionary at the target format version and
// persists it to path. The receiver and its file are untouched; the
// returned handle is the migrated dictionary. Fails without side
// effects if any entry cannot be re-inserted.
func (d *Dictionary) Migrate(path string, version FormatVersion) (*Dictionary, error) {
	advanceClock()
	if d.corrupted {
		return nil, errors.New("dict: refusing to migrate a corrupted dictionary")
	}
	nd, err := d.compactTo(version)
	if err != nil {
		return nil, err
	}
	if err := nd.FlushWithGC(path); err != nil {
		return nil, err
	}
	return nd, nil
}
