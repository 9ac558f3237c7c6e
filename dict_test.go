package dict

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func cps(s string) []rune { return []rune(s) }

func newTestDict(t *testing.T, version FormatVersion) *Dictionary {
	t.Helper()
	d, err := New(version, "en_US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func addWord(t *testing.T, d *Dictionary, word string, prob int) {
	t.Helper()
	up := UnigramProperty{Probability: prob, Historical: HistoricalInfo{Count: 1, Timestamp: 1000}}
	if !d.AddUnigramWord(cps(word), &up) {
		t.Fatalf("unigram %q refused", word)
	}
}

func addBigram(t *testing.T, d *Dictionary, w0, w1 string, prob int) {
	t.Helper()
	bp := BigramProperty{TargetCodePoints: cps(w1), Probability: prob, Historical: HistoricalInfo{Count: 1, Timestamp: 1000}}
	if !d.AddBigramWords(cps(w0), &bp) {
		t.Fatalf("bigram %q -> %q refused", w0, w1)
	}
}

func TestEmptyDictionaryMiss(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	if p := d.GetProbability(cps("hello")); p != NOT_A_PROBABILITY {
		t.Errorf("expected NOT_A_PROBABILITY; got %d", p)
	}
	if word, token := d.GetNextWordAndNextToken(0); word != nil || token != 0 {
		t.Errorf("expected empty iteration; got %q %d", string(word), token)
	}
}

func TestInsertThenLookup(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "hello", 120)
	if p := d.GetProbability(cps("hello")); p != 120 {
		t.Errorf("expected 120; got %d", p)
	}
	pos := d.GetTerminalPosition(cps("hello"), false)
	if pos == NOT_A_DICT_POS {
		t.Fatal("expected a terminal position")
	}
	if p := d.ProbabilityAt(pos); p != 120 {
		t.Errorf("expected 120 at position; got %d", p)
	}
	if got := d.GetTerminalPosition(cps("HELLO"), true); got != pos {
		t.Errorf("expected case-folded position %d; got %d", pos, got)
	}
	wp, ok := d.GetWordProperty(cps("hello"))
	if !ok {
		t.Fatal("word property missing")
	}
	want := WordProperty{
		CodePoints: cps("hello"),
		Unigram: UnigramProperty{
			Probability: 120,
			Historical:  HistoricalInfo{Count: 1, Timestamp: 1000},
			Shortcuts:   []ShortcutProperty{},
		},
	}
	if diff := cmp.Diff(want, wp); diff != "" {
		t.Errorf("unexpected word property (-want +got):\n%s", diff)
	}
}

func TestBigramQueries(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	addWord(t, d, "morning", 80)
	addBigram(t, d, "good", "morning", 180)

	if p := d.GetBigramProbability(cps("good"), cps("morning")); p != 180 {
		t.Errorf("expected 180; got %d", p)
	}
	if p := d.GetBigramProbability(cps("morning"), cps("good")); p != NOT_A_PROBABILITY {
		t.Errorf("expected NOT_A_PROBABILITY; got %d", p)
	}

	preds := d.GetPredictions(cps("good"))
	want := []Prediction{{cps("morning"), 203}}
	if diff := cmp.Diff(want, preds); diff != "" {
		t.Errorf("unexpected predictions (-want +got):\n%s", diff)
	}
}

func TestBigramUpdateKeepsTargetsUnique(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	addWord(t, d, "morning", 80)
	addBigram(t, d, "good", "morning", 100)
	addBigram(t, d, "good", "morning", 200)

	if p := d.GetBigramProbability(cps("good"), cps("morning")); p != 200 {
		t.Errorf("expected 200; got %d", p)
	}
	if preds := d.GetPredictions(cps("good")); len(preds) != 1 {
		t.Errorf("expected a single prediction; got %v", preds)
	}
}

func TestBigramRemove(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	addWord(t, d, "morning", 80)
	addBigram(t, d, "good", "morning", 180)

	if !d.RemoveBigramWords(cps("good"), cps("morning")) {
		t.Error("expected removal to report an edge")
	}
	if p := d.GetBigramProbability(cps("good"), cps("morning")); p != NOT_A_PROBABILITY {
		t.Errorf("expected NOT_A_PROBABILITY; got %d", p)
	}
	// Removing an absent edge is not an error, just a no-op.
	if d.RemoveBigramWords(cps("good"), cps("morning")) {
		t.Error("expected no edge on second removal")
	}
}

func TestBigramRequiresUnigrams(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	bp := BigramProperty{TargetCodePoints: cps("night"), Probability: 50}
	if d.AddBigramWords(cps("good"), &bp) {
		t.Error("expected refusal for missing target unigram")
	}
	bp = BigramProperty{TargetCodePoints: cps("good"), Probability: 50}
	if d.AddBigramWords(cps("night"), &bp) {
		t.Error("expected refusal for missing source unigram")
	}
}

func TestIterationEnumeratesExactly(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	words := []string{"a", "ab", "abc", "b", "ba", "cafe", "caffeine"}
	for i, w := range words {
		addWord(t, d, w, 10+i)
	}
	seen := map[string]int{}
	for word, token := d.GetNextWordAndNextToken(0); word != nil; word, token = d.GetNextWordAndNextToken(token) {
		seen[string(word)]++
		if token == 0 {
			break
		}
	}
	if len(seen) != len(words) {
		t.Fatalf("expected %d words; got %v", len(words), seen)
	}
	for _, w := range words {
		if seen[w] != 1 {
			t.Errorf("%q enumerated %d times", w, seen[w])
		}
	}
}

func TestStaleTokenRejectedAfterGC(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "alpha", 10)
	addWord(t, d, "beta", 20)
	_, token := d.GetNextWordAndNextToken(0)
	if token == 0 {
		t.Fatal("expected a continuation token")
	}
	if err := d.FlushWithGC(filepath.Join(t.TempDir(), "a.dict")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if word, next := d.GetNextWordAndNextToken(token); word != nil || next != 0 {
		t.Errorf("expected stale token to terminate iteration; got %q %d", string(word), next)
	}
	// A fresh iteration works again.
	if word, _ := d.GetNextWordAndNextToken(0); word == nil {
		t.Error("expected fresh iteration to work after GC")
	}
}

func dictWords(d *Dictionary) map[string]int {
	out := map[string]int{}
	for word, token := d.GetNextWordAndNextToken(0); word != nil; word, token = d.GetNextWordAndNextToken(token) {
		out[string(word)] = d.GetProbability(word)
		if token == 0 {
			break
		}
	}
	return out
}

func TestFlushRoundTrip(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	addWord(t, d, "morning", 80)
	addWord(t, d, "night", 60)
	up := UnigramProperty{
		Probability: 90,
		IsNotAWord:  true,
		Historical:  HistoricalInfo{Level: 2, Count: 3, Timestamp: 999},
		Shortcuts:   []ShortcutProperty{{cps("gd"), 12}},
	}
	if !d.AddUnigramWord(cps("good"), &up) {
		t.Fatal("update refused")
	}
	addBigram(t, d, "good", "morning", 180)
	addBigram(t, d, "good", "night", 170)
	if !d.RemoveBigramWords(cps("good"), cps("night")) {
		t.Fatal("removal refused")
	}

	path := filepath.Join(t.TempDir(), "flush.dict")
	if err := d.Flush(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	re, err := Open(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer re.Close()

	if re.IsCorrupted() {
		t.Error("reopened dictionary reports corruption")
	}
	for _, w := range []string{"good", "morning", "night"} {
		want, ok1 := d.GetWordProperty(cps(w))
		got, ok2 := re.GetWordProperty(cps(w))
		if !ok1 || !ok2 {
			t.Fatalf("%q missing after round trip", w)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%q property changed (-want +got):\n%s", w, diff)
		}
	}
	if p := re.GetBigramProbability(cps("good"), cps("night")); p != NOT_A_PROBABILITY {
		t.Errorf("removed bigram resurrected with %d", p)
	}
}

func TestFlushWithGCRoundTrip(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	rng := rand.New(rand.NewSource(1))
	want := map[string]int{}
	for len(want) < 10000 {
		n := 1 + rng.Intn(12)
		w := make([]rune, n)
		for i := range w {
			w[i] = rune('a' + rng.Intn(26))
		}
		prob := rng.Intn(MAX_PROBABILITY + 1)
		addWord(t, d, string(w), prob)
		want[string(w)] = prob
	}

	path := filepath.Join(t.TempDir(), "gc.dict")
	if err := d.FlushWithGC(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	re, err := Open(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer re.Close()

	got := dictWords(re)
	if len(got) != len(want) {
		t.Fatalf("expected %d words; got %d", len(want), len(got))
	}
	for w, p := range want {
		if got[w] != p {
			t.Errorf("%q: expected %d; got %d", w, p, got[w])
		}
	}
}

func TestFlushWithGCIdempotent(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	addWord(t, d, "morning", 80)
	addWord(t, d, "night", 70)
	addBigram(t, d, "good", "morning", 180)
	addBigram(t, d, "good", "night", 160)
	// Leave some garbage behind so the first GC has work to do.
	addWord(t, d, "good", 110)
	d.RemoveBigramWords(cps("good"), cps("night"))

	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.dict")
	p2 := filepath.Join(dir, "two.dict")
	if err := d.FlushWithGC(p1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.FlushWithGC(p2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b1, err := os.ReadFile(p1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(p2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Error("consecutive GC flushes are not byte-identical")
	}
}

func TestNeedsToRunGCThresholds(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "word", 10)
	if d.NeedsToRunGC(true) || d.NeedsToRunGC(false) {
		t.Error("fresh dictionary should not need GC")
	}
	for i := 0; i < gcStrictGarbage+5; i++ {
		addWord(t, d, "word", 10+i%3)
	}
	if !d.NeedsToRunGC(true) {
		t.Error("expected strict probe to trip")
	}
	if err := d.FlushWithGC(filepath.Join(t.TempDir(), "g.dict")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NeedsToRunGC(true) {
		t.Error("expected GC to clear the garbage")
	}
}

func TestBatchEntriesResumeAfterGC(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "seed", 10)
	for i := 0; i < gcStrictGarbage+5; i++ {
		addWord(t, d, "seed", 10+i%3)
	}

	entries := []DictionaryEntry{
		{Word1: cps("one"), UnigramProbability: 10, BigramProbability: NOT_A_PROBABILITY, Timestamp: 100},
		{Word0: cps("one"), Word1: cps("two"), UnigramProbability: 20, BigramProbability: 120, Timestamp: 100},
		{Word1: cps("three"), UnigramProbability: 30, BigramProbability: NOT_A_PROBABILITY,
			ShortcutTarget: cps("3"), ShortcutProbability: 14, Timestamp: 100},
	}
	next := d.AddMultipleDictionaryEntries(entries, 0)
	if next == len(entries) {
		t.Fatal("expected an early return while garbage is pending")
	}
	if err := d.FlushWithGC(filepath.Join(t.TempDir(), "b.dict")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.AddMultipleDictionaryEntries(entries, next); got != len(entries) {
		t.Fatalf("expected completion; got %d", got)
	}

	if p := d.GetProbability(cps("two")); p != 20 {
		t.Errorf("expected 20; got %d", p)
	}
	if p := d.GetBigramProbability(cps("one"), cps("two")); p != 120 {
		t.Errorf("expected 120; got %d", p)
	}
	wp, ok := d.GetWordProperty(cps("three"))
	if !ok || len(wp.Unigram.Shortcuts) != 1 || string(wp.Unigram.Shortcuts[0].CodePoints) != "3" {
		t.Errorf("expected shortcut on %q; got %+v", "three", wp.Unigram.Shortcuts)
	}
}

func TestMigration(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "good", 100)
	addWord(t, d, "morning", 80)
	addBigram(t, d, "good", "morning", 180)

	path := filepath.Join(t.TempDir(), "v5.dict")
	md, err := d.Migrate(path, VERSION_5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.FormatVersion() != VERSION_5 {
		t.Errorf("expected version 5; got %d", md.FormatVersion())
	}

	re, err := Open(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer re.Close()
	if re.FormatVersion() != VERSION_5 {
		t.Errorf("expected persisted version 5; got %d", re.FormatVersion())
	}
	if re.IsCorrupted() {
		t.Error("migrated dictionary reports corruption")
	}
	for _, w := range []string{"good", "morning"} {
		want, _ := d.GetWordProperty(cps(w))
		got, ok := re.GetWordProperty(cps(w))
		if !ok {
			t.Fatalf("%q lost in migration", w)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%q property changed (-want +got):\n%s", w, diff)
		}
	}
	if p := re.GetBigramProbability(cps("good"), cps("morning")); p != 180 {
		t.Errorf("expected 180; got %d", p)
	}
	// The source dictionary is untouched.
	if d.FormatVersion() != VERSION_4 {
		t.Errorf("source version changed to %d", d.FormatVersion())
	}
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "hello", 120)
	path := filepath.Join(t.TempDir(), "ok.dict")
	if err := d.FlushWithGC(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	writeVariant := func(name string, b []byte) string {
		p := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(p, b, 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xFF
	if _, err := Open(writeVariant("magic.dict", bad), false); err == nil {
		t.Error("expected bad magic to fail open")
	}

	bad = append([]byte(nil), data...)
	bad[4] = 42
	if _, err := Open(writeVariant("version.dict", bad), false); err == nil {
		t.Error("expected unknown version to fail open")
	}

	if _, err := Open(writeVariant("trunc.dict", data[:len(data)-3]), false); err == nil {
		t.Error("expected truncated body to fail open")
	}

	if _, err := Open(filepath.Join(t.TempDir(), "absent.dict"), false); err == nil {
		t.Error("expected missing file to fail open")
	}
}

func TestReadOnlyRefusesMutation(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "hello", 120)
	path := filepath.Join(t.TempDir(), "ro.dict")
	if err := d.FlushWithGC(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	re, err := Open(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer re.Close()
	up := UnigramProperty{Probability: 10}
	if re.AddUnigramWord(cps("nope"), &up) {
		t.Error("expected mutation refusal on read-only handle")
	}
	if re.NeedsToRunGC(false) {
		t.Error("read-only handle should never need GC")
	}
}

func TestGetProperty(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	addWord(t, d, "hello", 120)
	if got := d.GetProperty(AttrDictionary, -1); got != "main:en_US" {
		t.Errorf(`expected "main:en_US"; got %q`, got)
	}
	if got := d.GetProperty(AttrDictionary, 4); got != "main" {
		t.Errorf(`expected "main"; got %q`, got)
	}
	if got := d.GetProperty("wordcount", -1); got != "1" {
		t.Errorf(`expected "1"; got %q`, got)
	}
	if got := d.GetProperty("max_word_length", -1); got != strconv.Itoa(MAX_WORD_LENGTH) {
		t.Errorf("expected %d; got %q", MAX_WORD_LENGTH, got)
	}
	if got := d.GetProperty("nonsense", -1); got != "" {
		t.Errorf("expected empty; got %q", got)
	}
}

func TestInvalidWordsRefused(t *testing.T) {
	d := newTestDict(t, VERSION_4)
	up := UnigramProperty{Probability: 10}
	if d.AddUnigramWord(nil, &up) {
		t.Error("expected empty word refusal")
	}
	long := make([]rune, MAX_WORD_LENGTH+1)
	for i := range long {
		long[i] = 'x'
	}
	if d.AddUnigramWord(long, &up) {
		t.Error("expected overlong word refusal")
	}
	if p := d.GetProbability(nil); p != NOT_A_PROBABILITY {
		t.Errorf("expected NOT_A_PROBABILITY; got %d", p)
	}
}
