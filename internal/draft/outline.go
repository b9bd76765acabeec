package draft

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one markdown heading found in draft content.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Metadata is the lightweight metadata derived from a draft.
type Metadata struct {
	WordCount      int       `json:"word_count"`
	CharCount      int       `json:"char_count"`
	EstimatedPages int       `json:"estimated_pages"`
	Title          string    `json:"title,omitempty"`
	Characters     int       `json:"characters"`
	Outline        []Heading `json:"outline,omitempty"`
}

var markdown = goldmark.New()

// Extract derives metadata from a draft. It never fails: content that is not
// markdown simply has no outline.
func Extract(d Draft) Metadata {
	words := WordCountOf(d)
	outline := Outline(d.Content)

	m := Metadata{
		WordCount:      words,
		CharCount:      CountChars(d.Content),
		EstimatedPages: EstimatePages(words),
		Outline:        outline,
		Characters:     countCharacters(d),
	}

	for _, key := range []string{"title", "story_title"} {
		if s, ok := d.StringField(key); ok && strings.TrimSpace(s) != "" {
			m.Title = strings.TrimSpace(s)
			break
		}
	}
	if m.Title == "" && len(outline) > 0 {
		m.Title = outline[0].Text
	}

	return m
}

// Outline parses content as markdown and returns its headings in document order.
func Outline(content string) []Heading {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	src := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		inlineText(h, src, &b)
		if t := strings.TrimSpace(b.String()); t != "" {
			headings = append(headings, Heading{Level: h.Level, Text: t})
		}
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			inlineText(c, src, b)
		}
	}
}

// countCharacters returns the length of the "characters" field when it is a list
// or a map, zero otherwise.
func countCharacters(d Draft) int {
	switch v := d.Fields["characters"].(type) {
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		return 0
	}
}
