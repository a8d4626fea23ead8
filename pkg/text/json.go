package text

import (
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var ErrNoJSON = errors.New("no json found")

// ExtractJSON returns the JSON document contained in a model response. Plain
// JSON is returned as is; otherwise the first fenced code block tagged json
// (or untagged) is used, and as a last resort the outermost braces.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	if content == "" {
		return "", ErrNoJSON
	}

	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return content, nil
	}

	if block, ok := fencedBlock(content); ok {
		return block, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start < 0 || end <= start {
		return "", ErrNoJSON
	}

	return content[start : end+1], nil
}

func fencedBlock(markdown string) (string, bool) {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var result string
	var found bool

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found {
			return ast.WalkContinue, nil
		}

		block, ok := n.(*ast.FencedCodeBlock)

		if !ok {
			return ast.WalkContinue, nil
		}

		switch lang := strings.ToLower(string(block.Language(source))); lang {
		case "", "json", "jsonc", "json5":
		default:
			return ast.WalkSkipChildren, nil
		}

		var sb strings.Builder

		lines := block.Lines()

		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			sb.Write(line.Value(source))
		}

		result = strings.TrimSpace(sb.String())
		found = result != ""

		return ast.WalkStop, nil
	})

	return result, found
}
