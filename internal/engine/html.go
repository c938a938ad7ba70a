package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// htmlToText strips an HTML document down to readable plain text. Block
// boundaries and <br> become newlines; script and style contents are
// dropped entirely.
func htmlToText(src string) string {
	tok := html.NewTokenizer(strings.NewReader(src))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			// Includes io.EOF; tolerate malformed markup and return
			// whatever was extracted.
			return collapseBlankLines(b.String())
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			appendCollapsed(&b, string(tok.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "head":
				skipDepth++
			case "br":
				b.WriteByte('\n')
			case "p", "div", "tr", "li", "table", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte('\n')
			case "td":
				b.WriteByte('\t')
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "head":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "tr", "li", "table", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte('\n')
			}
		}
	}
}

// appendCollapsed writes a text token with whitespace runs folded to
// single spaces, keeping one space at a boundary shared with the
// previous token so inline markup does not glue words together.
func appendCollapsed(b *strings.Builder, s string) {
	collapsed := collapseSpace(s)
	if collapsed == "" {
		if s != "" {
			writeBoundarySpace(b)
		}
		return
	}
	if startsWithSpace(s) {
		writeBoundarySpace(b)
	}
	b.WriteString(collapsed)
	if endsWithSpace(s) {
		b.WriteByte(' ')
	}
}

func writeBoundarySpace(b *strings.Builder) {
	s := b.String()
	if s == "" {
		return
	}
	switch s[len(s)-1] {
	case ' ', '\n', '\t':
	default:
		b.WriteByte(' ')
	}
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

// collapseSpace folds runs of whitespace into single spaces, the way a
// browser renders inline text.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapseBlankLines trims trailing space per line and folds runs of
// blank lines into one.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// truncateUTF8 cuts s to at most limit bytes without splitting inside a
// multi-byte character. A non-positive limit means unlimited.
func truncateUTF8(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
