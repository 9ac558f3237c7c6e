package dict

// The bigram store. Each source terminal owns a child level in the
// TrieMap, keyed by target terminal position. The packed value keeps
// the 8-bit probability and a reference into the historical-counter
// arena; target uniqueness per source falls out of the map keys.

import "errors"

var errDanglingBigram = errors.New("dict: bigram references a dead terminal")

type bigramEdge struct {
	target      Position
	probability int
	historical  HistoricalInfo
}

type bigramStore struct {
	m       *TrieMap
	hist    []HistoricalInfo
	orphans int // historical slots whose edge was removed
}

const bigramHistMask = 1<<24 - 1

func newBigramStore() *bigramStore {
	return &bigramStore{m: NewTrieMap()}
}

func packBigram(probability, histIndex int) uint64 {
	return uint64(clampProbability(probability))<<24 | uint64(histIndex+1)
}

// add upserts the edge src -> tgt. On update the probability is
// replaced and the historical counters accumulate.
func (b *bigramStore) add(src, tgt Position, probability int, h HistoricalInfo) bool {
	level := b.m.NextLevelIndex(uint32(src), 0)
	if level == INVALID_INDEX {
		return false
	}
	node := b.m.Get(uint32(tgt), level)
	histIndex := len(b.hist)
	if node.Valid {
		histIndex = int(node.Value&bigramHistMask) - 1
		b.hist[histIndex].merge(h)
	} else {
		if histIndex >= bigramHistMask {
			return false
		}
		b.hist = append(b.hist, h)
	}
	return b.m.Put(uint32(tgt), packBigram(probability, histIndex), level)
}

// remove tombstones the edge; absent edges are not an error.
func (b *bigramStore) remove(src, tgt Position) bool {
	node := b.m.GetRoot(uint32(src))
	if node.NextLevel == INVALID_INDEX {
		return false
	}
	if !b.m.Remove(uint32(tgt), node.NextLevel) {
		return false
	}
	b.orphans++
	return true
}

func (b *bigramStore) probability(src, tgt Position) int {
	node := b.m.GetRoot(uint32(src))
	if node.NextLevel == INVALID_INDEX {
		return NOT_A_PROBABILITY
	}
	e := b.m.Get(uint32(tgt), node.NextLevel)
	if !e.Valid {
		return NOT_A_PROBABILITY
	}
	return int(e.Value >> 24 & 0xFF)
}

// edgesOf materialises the outgoing edge set of one source terminal.
func (b *bigramStore) edgesOf(src Position) []bigramEdge {
	node := b.m.GetRoot(uint32(src))
	if node.NextLevel == INVALID_INDEX {
		return nil
	}
	var edges []bigramEdge
	for e := range b.m.Entries(node.NextLevel) {
		if !e.Node.Valid {
			continue
		}
		edges = append(edges, bigramEdge{
			target:      Position(e.Key),
			probability: int(e.Node.Value >> 24 & 0xFF),
			historical:  b.hist[int(e.Node.Value&bigramHistMask)-1],
		})
	}
	return edges
}

func (b *bigramStore) garbage() int {
	return b.m.garbage + b.orphans
}

func (b *bigramStore) write(w *byteWriter, keepTombstones bool) {
	b.m.write(w, keepTombstones)
	w.uvarint(uint64(len(b.hist)))
	for _, h := range b.hist {
		writeHistorical(w, h)
	}
}

func readBigramStore(r *byteReader) (*bigramStore, error) {
	m, err := readTrieMap(r)
	if err != nil {
		return nil, err
	}
	b := &bigramStore{m: m}
	histCount := r.count()
	b.hist = make([]HistoricalInfo, histCount)
	for i := range b.hist {
		b.hist[i] = readHistorical(r)
	}
	if r.err != nil {
		return nil, r.err
	}
	return b, nil
}

// check verifies every edge against the word store: sources and
// targets must resolve to live terminals and historical references
// must be in range. Both channels are drained even after a failure.
func (b *bigramStore) check(words *wordStore) error {
	var err error
	for root := range b.m.Entries(0) {
		if !words.isTerminal(Position(root.Key)) {
			err = errDanglingBigram
		}
		if root.Node.NextLevel == INVALID_INDEX {
			continue
		}
		for e := range b.m.Entries(root.Node.NextLevel) {
			if !words.isTerminal(Position(e.Key)) {
				err = errDanglingBigram
			}
			if e.Node.Valid {
				if hi := int(e.Node.Value&bigramHistMask) - 1; hi < 0 || hi >= len(b.hist) {
					err = errDanglingBigram
				}
			}
		}
	}
	return err
}
