package dict

// Exported per-word records. Everything handed out here is a dense
// copy; callers never see internal memory.

// ShortcutProperty is an alternative surface form suggested from a
// source word.
type ShortcutProperty struct {
	CodePoints  []rune
	Probability int
}

// UnigramProperty is the per-terminal record.
type UnigramProperty struct {
	Probability   int
	IsNotAWord    bool
	IsBlacklisted bool
	Historical    HistoricalInfo
	Shortcuts     []ShortcutProperty
}

// BigramProperty describes one outgoing bigram edge.
type BigramProperty struct {
	TargetCodePoints []rune
	Probability      int
	Historical       HistoricalInfo
}

// WordProperty is the read-only export of a terminal.
type WordProperty struct {
	CodePoints []rune
	Unigram    UnigramProperty
	Bigrams    []BigramProperty
}

func (u *UnigramProperty) copy() UnigramProperty {
	c := *u
	c.Shortcuts = make([]ShortcutProperty, len(u.Shortcuts))
	for i, s := range u.Shortcuts {
		c.Shortcuts[i] = ShortcutProperty{append([]rune(nil), s.CodePoints...), s.Probability}
	}
	return c
}

// merge folds an update into the stored record: the probability and
// flags are replaced, historical counters accumulate, and shortcuts
// upsert per target keeping insertion order.
func (u *UnigramProperty) merge(o *UnigramProperty) {
	u.Probability = o.Probability
	u.IsNotAWord = o.IsNotAWord
	u.IsBlacklisted = o.IsBlacklisted
	u.Historical.merge(o.Historical)
outer:
	for _, s := range o.Shortcuts {
		for i := range u.Shortcuts {
			if runesEqual(u.Shortcuts[i].CodePoints, s.CodePoints) {
				u.Shortcuts[i].Probability = s.Probability
				continue outer
			}
		}
		u.Shortcuts = append(u.Shortcuts, ShortcutProperty{append([]rune(nil), s.CodePoints...), s.Probability})
	}
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
