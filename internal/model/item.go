package model

import "time"

// Page statuses reported by the gallery
const (
	StatusSuccess = "success"
	StatusLoading = "loading"
	StatusPartial = "partial"
)

// Neutral values carried by an item whose scoring failed
const (
	DegradedScore      = 0.5
	DegradedConfidence = 0.5
	DefaultCategory    = "General"
)

// Tones derived from trigger words
const (
	ToneNeutral     = "neutral"
	ToneSensational = "sensational"
)

// RawItem is a candidate news item as returned by a feed provider
type RawItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Image       string    `json:"image,omitempty"`
	Source      string    `json:"source"`      // Publisher display name
	PublishedAt time.Time `json:"publishedAt"` // Zero when the feed omitted it
	Group       string    `json:"group"`       // Source group the item was fetched for
}

// Valid reports whether the item carries the fields required for scoring
func (r RawItem) Valid() bool {
	return r.Title != "" && r.Description != ""
}

// ClaimText is the text scored for this item
func (r RawItem) ClaimText() string {
	return r.Title + " " + r.Description
}

// Item is a fully enriched gallery entry. Items are replaced, never mutated, once published.
type Item struct {
	RawItem

	FinalScore    float64         `json:"score"`
	Confidence    float64         `json:"confidence"`
	IsReal        bool            `json:"isReal"`
	Category      string          `json:"category"`
	Tone          string          `json:"tone"`
	PriorityScore int             `json:"priorityScore"`
	IsAlert       bool            `json:"isAlert"`
	Breakdown     *ScoreBreakdown `json:"analysis,omitempty"`
	Placeholder   bool            `json:"placeholder,omitempty"` // Synthetic item served while loading
	Degraded      bool            `json:"degraded,omitempty"`    // Scoring failed; neutral values used
}

// DegradedItem returns an item with neutral defaults for a raw item that could not be processed
func DegradedItem(raw RawItem) Item {
	return Item{
		RawItem:    raw,
		FinalScore: DegradedScore,
		Confidence: DegradedConfidence,
		IsReal:     IsRealScore(DegradedScore),
		Category:   DefaultCategory,
		Tone:       ToneNeutral,
		Degraded:   true,
	}
}

// Page is one slice of the gallery
type Page struct {
	Items       []Item    `json:"items"`
	TotalItems  int       `json:"total_items"`
	TotalPages  int       `json:"total_pages"`
	Page        int       `json:"page"`
	PageSize    int       `json:"per_page"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}
