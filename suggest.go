package dict

// The surface consumed by the suggestion engines. The engines
// themselves (typing beam search, gesture decoding) live outside this
// package; the dictionary only dispatches to whichever is installed
// and guarantees them a consistent clock.

// Prediction is one suggested word with its score.
type Prediction struct {
	CodePoints  []rune
	Probability int
}

// SuggestOptions selects and tunes an engine.
type SuggestOptions struct {
	IsGesture          bool
	BlockOffensive     bool
	SpaceAwareGesture  bool
	AdditionalFeatures []int
}

// ProximityInfo is the keyboard-geometry handle handed through to the
// engines; the dictionary never interprets it.
type ProximityInfo interface{}

// TraverseSession carries engine state that must be re-anchored
// against the dictionary before every request, since terminal
// positions do not survive garbage collection.
type TraverseSession struct {
	PrevWordPos Position
}

// SuggestInput is one suggestion request: the tap or gesture trace,
// the committed codepoints so far and the previous word.
type SuggestInput struct {
	Proximity ProximityInfo
	Session   *TraverseSession

	XCoords    []int
	YCoords    []int
	Times      []int
	PointerIds []int

	CodePoints     []rune
	PrevWord       []rune
	LanguageWeight float32
	Options        SuggestOptions
}

// InputSize returns the number of trace points, or -1 when the trace
// arrays disagree (the request is refused).
func (in *SuggestInput) InputSize() int {
	n := len(in.XCoords)
	if len(in.YCoords) != n || len(in.Times) != n || len(in.PointerIds) != n {
		return -1
	}
	return n
}

// SuggestEngine is what a search engine implements against the
// dictionary's query surface.
type SuggestEngine interface {
	Suggest(d *Dictionary, in *SuggestInput) []Prediction
}

// SetSuggestEngines installs the typing and gesture engines.
func (d *Dictionary) SetSuggestEngines(typing, gesture SuggestEngine) {
	d.typingEngine = typing
	d.gestureEngine = gesture
}

// GetSuggestions refreshes the clock and the traversal session, then
// delegates to the engine selected by the options. Without an
// installed engine, or with a malformed trace, the result is empty.
func (d *Dictionary) GetSuggestions(in *SuggestInput) []Prediction {
	advanceClock()
	if d.corrupted || in.InputSize() < 0 {
		return nil
	}
	if in.Session != nil {
		in.Session.PrevWordPos = NOT_A_DICT_POS
		if checkWord(in.PrevWord) == nil {
			in.Session.PrevWordPos = d.words.terminalPosition(in.PrevWord, true)
		}
	}
	engine := d.typingEngine
	if in.Options.IsGesture {
		engine = d.gestureEngine
	}
	if engine == nil {
		return nil
	}
	return engine.Suggest(d, in)
}
