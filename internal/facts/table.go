// Package facts holds the table of well-known statements that bypass provider scoring.
package facts

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/verity/internal/model"
)

// BasicFactConfidence is the confidence reported for any table match
const BasicFactConfidence = 0.95

// minSubstringLen is the floor a stored fact must exceed to match inside a longer claim
const minSubstringLen = 10

type entry struct {
	text    string
	runes   int
	verdict float64
}

// Table is an immutable, ordered list of normalized facts. Safe for concurrent use.
type Table struct {
	entries []entry
	exact   map[string]float64
}

// NewTable builds a table from fact entries. Earlier entries win on duplicate text.
func NewTable(facts []model.FactEntry) *Table {
	t := &Table{
		entries: make([]entry, 0, len(facts)),
		exact:   make(map[string]float64, len(facts)),
	}
	for _, f := range facts {
		text := Normalize(f.Text)
		if text == "" {
			continue
		}
		if _, dup := t.exact[text]; dup {
			continue
		}
		t.exact[text] = f.Verdict
		t.entries = append(t.entries, entry{text: text, runes: utf8.RuneCountInString(text), verdict: f.Verdict})
	}
	return t
}

// Len returns the number of distinct facts
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup reports whether text matches a stored fact, and the fact's verdict.
//
// An exact normalized match wins. Otherwise the first stored fact (in table
// order) that appears inside the input matches, provided it is longer than
// 10 characters and longer than half the input.
func (t *Table) Lookup(text string) (bool, float64) {
	input := Normalize(text)
	if input == "" {
		return false, 0
	}

	if verdict, ok := t.exact[input]; ok {
		return true, verdict
	}

	inputRunes := utf8.RuneCountInString(input)
	for _, e := range t.entries {
		if e.runes > minSubstringLen && e.runes > inputRunes/2 && strings.Contains(input, e.text) {
			return true, e.verdict
		}
	}

	return false, 0
}

// Normalize lowercases text, trims whitespace and strips terminal punctuation
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimRight(s, ".!?")
	return strings.TrimSpace(s)
}
