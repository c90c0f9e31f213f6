// Package process enriches fetched items with scores, categories and priority.
package process

import (
	"regexp"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

type topicMatcher struct {
	name     string
	priority bool
	patterns []*regexp.Regexp
}

// Classifier derives category, tone and priority from item text. It is immutable after construction.
type Classifier struct {
	topics      []topicMatcher
	sensational []*regexp.Regexp
}

// Classification is the keyword-derived part of an item
type Classification struct {
	Category      string
	Tone          string
	PriorityScore int
	IsAlert       bool
}

// NewClassifier compiles the ordered topic taxonomy and the sensational trigger words
func NewClassifier(topics []model.Topic, sensationalWords []string) *Classifier {
	c := &Classifier{}
	for _, t := range topics {
		m := topicMatcher{name: t.Name, priority: t.Priority}
		for _, kw := range t.Keywords {
			if re := wordPattern(kw); re != nil {
				m.patterns = append(m.patterns, re)
			}
		}
		c.topics = append(c.topics, m)
	}
	for _, w := range sensationalWords {
		if re := wordPattern(w); re != nil {
			c.sensational = append(c.sensational, re)
		}
	}
	return c
}

// wordPattern matches a keyword as whole words, case-insensitively
func wordPattern(keyword string) *regexp.Regexp {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Classify returns the category (first matching topic in table order, else General),
// the tone, and the priority score: one point for sensational tone plus one per
// matched priority topic. An item is an alert when its priority score exceeds 1.
func (c *Classifier) Classify(text string) Classification {
	out := Classification{Category: model.DefaultCategory, Tone: model.ToneNeutral}

	if anyMatch(c.sensational, text) {
		out.Tone = model.ToneSensational
		out.PriorityScore++
	}

	categorized := false
	for _, t := range c.topics {
		if !anyMatch(t.patterns, text) {
			continue
		}
		if !categorized {
			out.Category = t.name
			categorized = true
		}
		if t.priority {
			out.PriorityScore++
		}
	}

	out.IsAlert = out.PriorityScore > 1
	return out
}
