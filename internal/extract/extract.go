// Package extract pulls generated artifacts out of a model's markdown reply.
package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	markupLang     = "jsx"
	stylesheetLang = "css"
)

var md = goldmark.New()

// Artifacts scans raw completion text for a jsx-tagged and a css-tagged
// fenced code block. The first fence of each kind wins. When no jsx fence is
// present the whole trimmed reply is treated as markup; a missing css fence
// yields an empty stylesheet. The function always produces a result.
func Artifacts(raw string) (markup, stylesheet string) {
	source := []byte(raw)
	doc := md.Parser().Parse(text.NewReader(source))

	var haveMarkup, haveStylesheet bool
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		switch strings.ToLower(string(fence.Language(source))) {
		case markupLang:
			if !haveMarkup {
				markup = strings.TrimSpace(fenceContent(fence, source))
				haveMarkup = true
			}
		case stylesheetLang:
			if !haveStylesheet {
				stylesheet = strings.TrimSpace(fenceContent(fence, source))
				haveStylesheet = true
			}
		}
		if haveMarkup && haveStylesheet {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if !haveMarkup {
		markup = strings.TrimSpace(raw)
	}
	return markup, stylesheet
}

func fenceContent(fence *ast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
