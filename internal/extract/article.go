// Package extract pulls a scoreable claim out of a news article page.
package extract

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/verity/internal/model"
)

// Sentence length bounds for lead extraction, in bytes
const (
	minSentence   = 30
	maxSentence   = 500
	leadSentences = 2
)

// ErrNoHeadline is returned when a page has no title, heading or og:title
var ErrNoHeadline = errors.New("no headline found")

// Article is the headline and lead of a page
type Article struct {
	Title  string
	Lead   string
	Source string
	URL    string
}

// Claim returns the article as a claim, scored the same way as a gallery item
func (a Article) Claim() model.Claim {
	raw := model.RawItem{Title: a.Title, Description: a.Lead}
	text := a.Title
	if raw.Valid() {
		text = raw.ClaimText()
	}
	return model.Claim{Text: text, Source: a.Source, URL: a.URL}
}

// page collects what the walk finds
type page struct {
	meta       map[string]string
	title      string
	heading    string
	paragraphs strings.Builder
}

// ExtractArticle finds the headline, lead and publisher of an HTML page.
// Open Graph metadata wins over document structure.
func ExtractArticle(htmlContent, pageURL string) (Article, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return Article{}, err
	}

	p := &page{meta: make(map[string]string)}
	p.walk(doc, false)

	a := Article{URL: pageURL}
	a.Title = firstNonEmpty(p.meta["og:title"], p.meta["twitter:title"], p.heading, p.title)
	if a.Title == "" {
		return Article{}, ErrNoHeadline
	}

	a.Lead = firstNonEmpty(p.meta["og:description"], p.meta["description"])
	if a.Lead == "" {
		sentences := splitSentences(p.paragraphs.String())
		if len(sentences) > leadSentences {
			sentences = sentences[:leadSentences]
		}
		a.Lead = strings.Join(sentences, " ")
	}

	a.Source = p.meta["og:site_name"]
	if a.Source == "" {
		if u, err := url.Parse(pageURL); err == nil {
			a.Source = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return a, nil
}

func (p *page) walk(n *html.Node, inParagraph bool) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "iframe", "nav", "footer", "aside":
			return
		case "meta":
			p.addMeta(n)
		case "title":
			if p.title == "" {
				p.title = collapse(textOf(n))
			}
			return
		case "h1":
			if p.heading == "" {
				p.heading = collapse(textOf(n))
			}
			return
		case "p":
			inParagraph = true
		}
	}

	if n.Type == html.TextNode && inParagraph {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			p.paragraphs.WriteString(text)
			p.paragraphs.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c, inParagraph)
	}
}

func (p *page) addMeta(n *html.Node) {
	var key, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "property", "name":
			key = strings.ToLower(strings.TrimSpace(attr.Val))
		case "content":
			content = collapse(attr.Val)
		}
	}
	if key != "" && content != "" {
		if _, ok := p.meta[key]; !ok {
			p.meta[key] = content
		}
	}
}

// textOf concatenates all text below n
func textOf(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// splitSentences splits text into sentences, keeping only plausible ones
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on abbreviations
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				sentence := collapse(current.String())
				if len(sentence) >= minSentence && len(sentence) <= maxSentence {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentence := collapse(current.String())
		if len(sentence) >= minSentence && len(sentence) <= maxSentence {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
