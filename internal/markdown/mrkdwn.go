// ABOUTME: Markdown to Slack mrkdwn conversion built on goldmark.
// ABOUTME: Walks the parsed AST and re-emits Slack's formatting dialect.

package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ToMrkdwn converts Markdown source to Slack's mrkdwn dialect: *bold*,
// _italic_, `code`, <url|text> links, bold heading lines, and bullet lists.
// Constructs for which mrkdwn has no equivalent degrade to plain text.
func ToMrkdwn(source string) string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	r := &renderer{src: src}
	r.blockChildren(&buf, doc, "")
	return strings.TrimRight(buf.String(), "\n")
}

type renderer struct {
	src []byte
}

func (r *renderer) blockChildren(w *strings.Builder, n ast.Node, prefix string) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(w, c, prefix)
	}
}

func (r *renderer) block(w *strings.Builder, n ast.Node, prefix string) {
	switch t := n.(type) {
	case *ast.Heading:
		// mrkdwn has no headings; a bold line is the conventional stand-in.
		w.WriteString(prefix + "*" + r.inlineChildren(t) + "*\n")

	case *ast.Paragraph:
		r.writePrefixed(w, r.inlineChildren(t), prefix)

	case *ast.TextBlock:
		r.writePrefixed(w, r.inlineChildren(t), prefix)

	case *ast.Blockquote:
		var inner strings.Builder
		r.blockChildren(&inner, t, "")
		r.writePrefixed(w, strings.TrimRight(inner.String(), "\n"), prefix+"> ")

	case *ast.FencedCodeBlock:
		w.WriteString(prefix + "```\n" + r.rawLines(t) + prefix + "```\n")

	case *ast.CodeBlock:
		w.WriteString(prefix + "```\n" + r.rawLines(t) + prefix + "```\n")

	case *ast.List:
		num := t.Start
		for item := t.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "• "
			if t.IsOrdered() {
				marker = fmt.Sprintf("%d. ", num)
				num++
			}
			var inner strings.Builder
			r.blockChildren(&inner, item, "")
			lines := strings.Split(strings.TrimRight(inner.String(), "\n"), "\n")
			w.WriteString(prefix + marker + lines[0] + "\n")
			for _, extra := range lines[1:] {
				w.WriteString(prefix + strings.Repeat(" ", len(marker)) + extra + "\n")
			}
		}

	case *ast.ThematicBreak:
		w.WriteString(prefix + "---\n")

	default:
		r.blockChildren(w, n, prefix)
	}
}

// writePrefixed writes s line by line, prepending prefix to each line.
func (r *renderer) writePrefixed(w *strings.Builder, s, prefix string) {
	for _, line := range strings.Split(s, "\n") {
		w.WriteString(prefix + line + "\n")
	}
}

func (r *renderer) inlineChildren(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(&b, c)
	}
	return b.String()
}

func (r *renderer) inline(b *strings.Builder, n ast.Node) {
	switch t := n.(type) {
	case *ast.Text:
		b.WriteString(escape(string(t.Segment.Value(r.src))))
		if t.SoftLineBreak() || t.HardLineBreak() {
			b.WriteByte('\n')
		}

	case *ast.String:
		b.WriteString(escape(string(t.Value)))

	case *ast.Emphasis:
		marker := "_"
		if t.Level >= 2 {
			marker = "*"
		}
		b.WriteString(marker + r.inlineChildren(t) + marker)

	case *ast.CodeSpan:
		b.WriteString("`" + r.inlineChildren(t) + "`")

	case *ast.Link:
		label := r.inlineChildren(t)
		dest := string(t.Destination)
		if label == "" || label == dest {
			fmt.Fprintf(b, "<%s>", dest)
		} else {
			fmt.Fprintf(b, "<%s|%s>", dest, label)
		}

	case *ast.AutoLink:
		fmt.Fprintf(b, "<%s>", t.URL(r.src))

	case *ast.Image:
		// Slack cannot inline images from mrkdwn; link to it instead.
		fmt.Fprintf(b, "<%s|%s>", string(t.Destination), r.inlineChildren(t))

	default:
		b.WriteString(r.inlineChildren(n))
	}
}

// rawLines returns the verbatim source lines of a code block.
func (r *renderer) rawLines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(r.src))
	}
	return b.String()
}

// escape applies mrkdwn's three required entity escapes.
func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
