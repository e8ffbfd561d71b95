package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractCodeBlock returns the content of the first fenced code block in
// input, and the block's info string (e.g. "csv"). ok is false when there is
// no fenced block.
func ExtractCodeBlock(input string) (content, lang string, ok bool) {
	source := []byte(input)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var block *ast.FencedCodeBlock
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fb, isFence := n.(*ast.FencedCodeBlock); isFence {
			block = fb
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if block == nil {
		return "", "", false
	}

	var sb strings.Builder
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String(), string(block.Language(source)), true
}

// CleanResponse strips conversational filler around an LLM answer. When the
// answer contains a fenced code block, only its content is kept.
func CleanResponse(input string) string {
	if content, _, ok := ExtractCodeBlock(input); ok {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(input)
}
