// Package markdown renders post bodies and reduces user input to plain text.
package markdown

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser    goldmark.Markdown
	ugcPolicy   *bluemonday.Policy
	stripPolicy *bluemonday.Policy
)

func init() {
	mdParser = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
			// raw HTML is kept here and cleaned by the UGC policy below
			gmhtml.WithUnsafe(),
		),
	)

	ugcPolicy = bluemonday.UGCPolicy()
	ugcPolicy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span", "pre")
	ugcPolicy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	ugcPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	stripPolicy = bluemonday.StrictPolicy()
}

// ToHTML renders Markdown to sanitized HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return "", xerrors.Newf("render markdown: %w", err)
	}
	return ugcPolicy.Sanitize(buf.String()), nil
}

// StripTags removes every tag and returns unescaped plain text.
func StripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// PlainText renders Markdown and flattens the result to a single line of text.
func PlainText(source string) string {
	rendered, err := ToHTML(source)
	if err != nil {
		rendered = source
	}
	return stringutils.SquashSpaces(StripTags(rendered))
}

// Summary is the excerpt when present, otherwise the first n characters of
// the plain-text body followed by an ellipsis.
func Summary(excerpt *string, content string, n int) string {
	if excerpt != nil && strings.TrimSpace(*excerpt) != "" {
		return strings.TrimSpace(*excerpt)
	}
	text := PlainText(content)
	if len([]rune(text)) <= n {
		return text
	}
	return stringutils.Truncate(text, n) + "..."
}
