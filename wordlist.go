package dict

// Text word-list parsing and writing using iteratees. The format is
// line-oriented:
//
//	# comment
//	unigram <word> <probability>
//	bigram <word0> <word1> <probability>
//
// Bigram lines must come after the unigram lines that declare both
// words; offending lines are skipped with a warning.

import (
	"fmt"
	"io"
	"strconv"

	"github.com/golang/glog"
	"github.com/kho/stream"
	"github.com/kho/word"
)

// FromWordList builds a new dictionary from a text word list.
func FromWordList(in io.Reader, version FormatVersion, locale string) (*Dictionary, error) {
	d, err := New(version, locale)
	if err != nil {
		return nil, err
	}
	it := &wordListEntries{d, word.NewVocab(nil)}
	if err := stream.Run(stream.EnumRead(in, lineSplit), it); err != nil {
		return nil, err
	}
	return d, nil
}

// wordListEntries scans 0 or more word-list lines and adds them to
// the dictionary. The vocab tracks declared unigrams so bigram lines
// can be validated without touching the trie.
type wordListEntries struct {
	d     *Dictionary
	vocab *word.Vocab
}

func (it *wordListEntries) Final() error { return nil }
func (it *wordListEntries) Next(line []byte) (stream.Iteratee, bool, error) {
	if line[0] == '#' {
		return it, true, nil
	}
	kind, rest := tokenSplit(line)
	switch kind {
	case "unigram":
		w, rest := tokenSplit(rest)
		p, tail := tokenSplit(rest)
		if w == "" || p == "" || len(tail) != 0 {
			return nil, false, stream.ErrExpect(`"unigram <word> <probability>"`)
		}
		prob, err := parseProbability(p)
		if err != nil {
			return nil, false, err
		}
		if !it.d.AddUnigramWord([]rune(w), &UnigramProperty{Probability: prob}) {
			glog.Warningf("unigram %q refused", w)
			return it, true, nil
		}
		it.vocab.IdOrAdd(w)
	case "bigram":
		w0, rest := tokenSplit(rest)
		w1, rest2 := tokenSplit(rest)
		p, tail := tokenSplit(rest2)
		if w0 == "" || w1 == "" || p == "" || len(tail) != 0 {
			return nil, false, stream.ErrExpect(`"bigram <word0> <word1> <probability>"`)
		}
		prob, err := parseProbability(p)
		if err != nil {
			return nil, false, err
		}
		if it.vocab.IdOf(w0) == word.NIL || it.vocab.IdOf(w1) == word.NIL {
			glog.Warningf("bigram %q -> %q skipped: words not declared", w0, w1)
			return it, true, nil
		}
		it.d.AddBigramWords([]rune(w0), &BigramProperty{
			TargetCodePoints: []rune(w1),
			Probability:      prob,
		})
	default:
		return nil, false, stream.ErrExpect(`"unigram" or "bigram" line`)
	}
	return it, true, nil
}

func parseProbability(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if p < 0 || p > MAX_PROBABILITY {
		return 0, fmt.Errorf("probability %d out of range", p)
	}
	return p, nil
}

// WriteWordList dumps the dictionary back to the text format, unigram
// lines first. Reading the output back reproduces the same words,
// probabilities and bigrams.
func WriteWordList(d *Dictionary, w io.Writer) error {
	var words [][]rune
	for cps, token := d.GetNextWordAndNextToken(0); cps != nil; cps, token = d.GetNextWordAndNextToken(token) {
		words = append(words, cps)
		if _, err := fmt.Fprintf(w, "unigram %s %d\n", string(cps), d.GetProbability(cps)); err != nil {
			return err
		}
		if token == 0 {
			break
		}
	}
	for _, cps := range words {
		wp, ok := d.GetWordProperty(cps)
		if !ok {
			continue
		}
		for _, b := range wp.Bigrams {
			if _, err := fmt.Fprintf(w, "bigram %s %s %d\n", string(cps), string(b.TargetCodePoints), b.Probability); err != nil {
				return err
			}
		}
	}
	return nil
}

// Low-level lexer code.

func isSpace(b byte) bool {
	switch b {
	case '\t', '\v', '\f', '\r', ' ':
		return true
	default:
		return false
	}
}

func lineSplit(data []byte, atEOF bool) (int, []byte, error) {
	l, r, n := -1, -1, 0
	// Skip leading spaces or newlines.
	for i, b := range data {
		if !isSpace(b) && b != '\n' {
			l = i
			break
		}
	}
	if l < 0 {
		return len(data), nil, nil
	}
	// Find newline.
	for i, b := range data[l+1:] {
		if b == '\n' {
			r, n = l+i, l+i+2
			break
		}
	}
	if r < 0 {
		if !atEOF {
			return l, nil, nil
		}
		r, n = len(data)-1, len(data)
	}
	// Trim trailing spaces.
	for isSpace(data[r]) {
		// At most we shall stop at l.
		r--
	}
	return n, data[l : r+1], nil
}

func tokenSplit(line []byte) (string, []byte) {
	// Assuming line has no leading space.
	r := -1
	for i, b := range line {
		if isSpace(b) {
			r = i
			break
		}
	}
	if r < 0 {
		r = len(line)
	}
	token := string(line[:r])
	// Skip trailing spaces.
	for i, b := range line[r:] {
		if !isSpace(b) {
			return token, line[r+i:]
		}
	}
	return token, nil
}
