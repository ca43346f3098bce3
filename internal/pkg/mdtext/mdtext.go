// Package mdtext reduces markdown to plain text so prompts sent to the model
// carry content, not markup.
package mdtext

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

var multiNewline = regexp.MustCompile(`\n{3,}`)

// Extract parses markdown and returns its textual content. Formatting is
// dropped; block boundaries become blank lines, code blocks keep their text.
func Extract(markdown string) string {
	src := []byte(markdown)
	doc := engine.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.AutoLink:
			b.Write(t.URL(src))
		case *ast.FencedCodeBlock:
			writeLines(&b, src, t.Lines())
		case *ast.CodeBlock:
			writeLines(&b, src, t.Lines())
		}
		return ast.WalkContinue, nil
	})

	out := multiNewline.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

func writeLines(b *strings.Builder, src []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
}
