package dict

// Dictionary is the sole entry point for callers. It owns the header,
// the word store and the bigram store. A handle is single-threaded;
// distinct handles share nothing but the logical clock.

import (
	"strconv"
	"time"

	"github.com/golang/glog"
)

type Dictionary struct {
	header    *Header
	words     *wordStore
	bigrams   *bigramStore
	updatable bool
	corrupted bool

	// gcEpoch brands iteration tokens; it advances on every GC so a
	// stale token can be detected instead of dereferencing dead
	// positions.
	gcEpoch uint32
	mutGen  uint64

	termCache []Position
	cacheGen  uint64

	typingEngine  SuggestEngine
	gestureEngine SuggestEngine
}

// New constructs an empty updatable in-memory dictionary at the given
// format version and locale.
func New(version FormatVersion, locale string) (*Dictionary, error) {
	if !version.Supported() {
		return nil, ErrUnsupportedVersion
	}
	if locale == "" {
		locale = defaultLocale
	}
	h := newHeader(version, locale)
	h.Attributes[AttrDate] = strconv.FormatInt(time.Now().Unix(), 10)
	return &Dictionary{
		header:    h,
		words:     newWordStore(),
		bigrams:   newBigramStore(),
		updatable: true,
		cacheGen:  ^uint64(0),
	}, nil
}

// Close releases the handle. The backing mapping is already released
// after parse, so this only severs the stores.
func (d *Dictionary) Close() error {
	d.words = nil
	d.bigrams = nil
	d.termCache = nil
	return nil
}

func (d *Dictionary) FormatVersion() FormatVersion { return d.header.Version }
func (d *Dictionary) Updatable() bool              { return d.updatable }
func (d *Dictionary) IsCorrupted() bool            { return d.corrupted }

// WordCount returns the number of live terminals.
func (d *Dictionary) WordCount() int { return d.words.terminals }

// GetTerminalPosition resolves a word to its terminal position, or
// NOT_A_DICT_POS. With forceLowerCase a case-folded match is accepted
// when no exact match exists.
func (d *Dictionary) GetTerminalPosition(word []rune, forceLowerCase bool) Position {
	advanceClock()
	if d.corrupted || checkWord(word) != nil {
		return NOT_A_DICT_POS
	}
	return d.words.terminalPosition(word, forceLowerCase)
}

// GetProbability returns the unigram probability of word, or
// NOT_A_PROBABILITY when absent.
func (d *Dictionary) GetProbability(word []rune) int {
	advanceClock()
	if d.corrupted || checkWord(word) != nil {
		return NOT_A_PROBABILITY
	}
	return d.words.probabilityAt(d.words.lookup(word))
}

// ProbabilityAt reads the unigram probability of a terminal position
// obtained from GetTerminalPosition during the same GC epoch.
func (d *Dictionary) ProbabilityAt(pos Position) int {
	advanceClock()
	if d.corrupted {
		return NOT_A_PROBABILITY
	}
	return d.words.probabilityAt(pos)
}

// GetBigramProbability returns the stored probability of the edge
// w0 -> w1, or NOT_A_PROBABILITY.
func (d *Dictionary) GetBigramProbability(w0, w1 []rune) int {
	advanceClock()
	if d.corrupted || checkWord(w0) != nil || checkWord(w1) != nil {
		return NOT_A_PROBABILITY
	}
	src := d.words.lookup(w0)
	tgt := d.words.lookup(w1)
	if src == NOT_A_DICT_POS || tgt == NOT_A_DICT_POS {
		return NOT_A_PROBABILITY
	}
	return d.bigrams.probability(src, tgt)
}

// GetWordProperty exports the full record of a word as a dense copy.
func (d *Dictionary) GetWordProperty(word []rune) (WordProperty, bool) {
	advanceClock()
	if d.corrupted || checkWord(word) != nil {
		return WordProperty{}, false
	}
	pos := d.words.lookup(word)
	if pos == NOT_A_DICT_POS {
		return WordProperty{}, false
	}
	return d.wordPropertyAt(pos, word), true
}

func (d *Dictionary) wordPropertyAt(pos Position, word []rune) WordProperty {
	wp := WordProperty{
		CodePoints: append([]rune(nil), word...),
		Unigram:    d.words.nodes[pos].unigram.copy(),
	}
	for _, e := range d.bigrams.edgesOf(pos) {
		wp.Bigrams = append(wp.Bigrams, BigramProperty{
			TargetCodePoints: d.words.wordAt(e.target),
			Probability:      e.probability,
			Historical:       e.historical,
		})
	}
	return wp
}

// GetPredictions expands the bigram set of prevWord into (word,
// combined probability) pairs.
func (d *Dictionary) GetPredictions(prevWord []rune) []Prediction {
	advanceClock()
	if d.corrupted || checkWord(prevWord) != nil {
		return nil
	}
	src := d.words.terminalPosition(prevWord, true)
	if src == NOT_A_DICT_POS {
		return nil
	}
	var out []Prediction
	for _, e := range d.bigrams.edgesOf(src) {
		out = append(out, Prediction{
			CodePoints:  d.words.wordAt(e.target),
			Probability: CombinedProbability(d.words.probabilityAt(e.target), e.probability),
		})
	}
	return out
}

// AddUnigramWord inserts or updates a word. On update the probability
// and flags are replaced, historical counters accumulate and
// shortcuts upsert per target.
func (d *Dictionary) AddUnigramWord(word []rune, unigram *UnigramProperty) bool {
	now := advanceClock()
	if !d.mutable() {
		return false
	}
	if err := checkWord(word); err != nil {
		glog.Warning("refusing unigram: ", err)
		return false
	}
	for _, sc := range unigram.Shortcuts {
		if err := checkWord(sc.CodePoints); err != nil {
			glog.Warning("refusing unigram shortcut: ", err)
			return false
		}
	}
	up := unigram.copy()
	if up.Probability != NOT_A_PROBABILITY {
		up.Probability = clampProbability(up.Probability)
	}
	for i := range up.Shortcuts {
		up.Shortcuts[i].Probability = clampProbability(up.Shortcuts[i].Probability)
	}
	if up.Historical.Timestamp == 0 {
		up.Historical.Timestamp = now
	}
	if d.words.insert(word, &up) == NOT_A_DICT_POS {
		return false
	}
	d.mutGen++
	return true
}

// AddBigramWords records the edge word0 -> target. Both words must
// already be in the dictionary.
func (d *Dictionary) AddBigramWords(word0 []rune, bigram *BigramProperty) bool {
	now := advanceClock()
	if !d.mutable() {
		return false
	}
	if checkWord(word0) != nil || checkWord(bigram.TargetCodePoints) != nil {
		return false
	}
	src := d.words.lookup(word0)
	tgt := d.words.lookup(bigram.TargetCodePoints)
	if src == NOT_A_DICT_POS || tgt == NOT_A_DICT_POS {
		glog.Warningf("refusing bigram %q -> %q: missing unigram", string(word0), string(bigram.TargetCodePoints))
		return false
	}
	h := bigram.Historical
	if h.Timestamp == 0 {
		h.Timestamp = now
	}
	if !d.bigrams.add(src, tgt, bigram.Probability, h) {
		return false
	}
	d.mutGen++
	return true
}

// RemoveBigramWords removes the edge word0 -> word1. Removing an
// absent edge is not an error; the report says whether an edge died.
func (d *Dictionary) RemoveBigramWords(word0, word1 []rune) bool {
	advanceClock()
	if !d.mutable() || checkWord(word0) != nil || checkWord(word1) != nil {
		return false
	}
	src := d.words.lookup(word0)
	tgt := d.words.lookup(word1)
	if src == NOT_A_DICT_POS || tgt == NOT_A_DICT_POS {
		return false
	}
	if !d.bigrams.remove(src, tgt) {
		return false
	}
	d.mutGen++
	return true
}

func (d *Dictionary) mutable() bool {
	if !d.updatable {
		glog.Warning("mutation on a read-only dictionary")
		return false
	}
	return !d.corrupted
}

// DictionaryEntry is one element of a batched mutation.
type DictionaryEntry struct {
	Word0               []rune // optional bigram source
	Word1               []rune
	UnigramProbability  int
	BigramProbability   int // NOT_A_PROBABILITY when no bigram
	ShortcutTarget      []rune
	ShortcutProbability int
	IsNotAWord          bool
	IsBlacklisted       bool
	Timestamp           int
}

// AddMultipleDictionaryEntries processes entries from startIndex
// onward and returns the index of the next unprocessed entry. When a
// garbage-collection probe trips partway through, the return is early
// so the caller can FlushWithGC and resume; entries processed before
// the early return are visible on the handle but not yet durable. A
// return equal to len(entries) means completion.
func (d *Dictionary) AddMultipleDictionaryEntries(entries []DictionaryEntry, startIndex int) int {
	advanceClock()
	if !d.mutable() || startIndex < 0 {
		return startIndex
	}
	for i := startIndex; i < len(entries); i++ {
		if i > startIndex && d.NeedsToRunGC(true) {
			return i
		}
		e := &entries[i]
		up := UnigramProperty{
			Probability:   e.UnigramProbability,
			IsNotAWord:    e.IsNotAWord,
			IsBlacklisted: e.IsBlacklisted,
			Historical:    HistoricalInfo{Count: 1, Timestamp: e.Timestamp},
		}
		if len(e.ShortcutTarget) > 0 {
			up.Shortcuts = []ShortcutProperty{{e.ShortcutTarget, e.ShortcutProbability}}
		}
		if !d.AddUnigramWord(e.Word1, &up) {
			glog.Warningf("batch entry %d: unigram refused", i)
			continue
		}
		if len(e.Word0) > 0 && e.BigramProbability != NOT_A_PROBABILITY {
			bp := BigramProperty{
				TargetCodePoints: e.Word1,
				Probability:      e.BigramProbability,
				Historical:       HistoricalInfo{Count: 1, Timestamp: e.Timestamp},
			}
			if !d.AddBigramWords(e.Word0, &bp) {
				glog.Warningf("batch entry %d: bigram refused", i)
			}
		}
	}
	return len(entries)
}

// GetNextWordAndNextToken enumerates all words. A zero token starts
// iteration; the returned token identifies the cursor for the next
// call and is zero once the returned word is the last one. Tokens are
// branded with the GC epoch: a token minted before the last GC is
// rejected (iteration terminates) rather than dereferenced.
func (d *Dictionary) GetNextWordAndNextToken(token Token) ([]rune, Token) {
	advanceClock()
	if d.corrupted {
		return nil, 0
	}
	idx := 0
	if token != 0 {
		if epoch := uint32(token >> 32); epoch != d.gcEpoch {
			glog.Warningf("stale iteration token: epoch %d, current %d", epoch, d.gcEpoch)
			return nil, 0
		}
		idx = int(uint32(token))
	}
	d.refreshTermCache()
	if idx >= len(d.termCache) {
		return nil, 0
	}
	word := d.words.wordAt(d.termCache[idx])
	var next Token
	if idx+1 < len(d.termCache) {
		next = Token(d.gcEpoch)<<32 | Token(uint32(idx+1))
	}
	return word, next
}

func (d *Dictionary) refreshTermCache() {
	if d.cacheGen == d.mutGen && d.termCache != nil {
		return
	}
	d.termCache = d.termCache[:0]
	d.words.forEachTerminal(func(pos Position, _ []rune) bool {
		d.termCache = append(d.termCache, pos)
		return true
	})
	d.cacheGen = d.mutGen
}

// GetProperty answers attribute and statistics queries. The result is
// truncated to maxLen codepoints when maxLen is non-negative; unknown
// queries yield the empty string.
func (d *Dictionary) GetProperty(query string, maxLen int) string {
	advanceClock()
	var v string
	switch query {
	case AttrDictionary, AttrVersion, AttrDate:
		v = d.header.attribute(query)
	case "wordcount":
		v = strconv.Itoa(d.words.terminals)
	case "max_word_length":
		v = strconv.Itoa(MAX_WORD_LENGTH)
	}
	if maxLen >= 0 {
		if cps := []rune(v); len(cps) > maxLen {
			v = string(cps[:maxLen])
		}
	}
	return v
}
