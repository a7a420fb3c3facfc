package codeaction

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/odvcencio/furry-actions/host"
)

var markdown = goldmark.New()

// Flatten renders markdown as a single line of plain text. Provider titles
// and error details often carry inline markup the message line cannot show.
func Flatten(source string) string {
	if source == "" {
		return ""
	}
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.URL(src))
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				buf.Write(seg.Value(src))
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
				buf.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// notifier shows flattened messages through the host and logs them.
type notifier struct {
	out    host.Messenger
	logger *slog.Logger
}

func (n *notifier) ShowMessage(level host.Level, message string) {
	flat := Flatten(message)
	n.logger.Log(context.Background(), slogLevel(level), "message shown", "text", flat)
	if n.out != nil {
		n.out.ShowMessage(level, flat)
	}
}

func slogLevel(level host.Level) slog.Level {
	switch level {
	case host.LevelError:
		return slog.LevelError
	case host.LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
