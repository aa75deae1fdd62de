package fused

import "strings"

// TokenParser is the cross-check backend. Instead of scanning line by line,
// it lexes the whole source into a flat stream of text chunks and standalone
// actions, then replays the stream through the same control-flow stack as
// [ScanParser]. Divergence between the two backends on any input is a bug.
type TokenParser struct{}

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenAction
)

type token struct {
	kind tokenKind
	text string
}

// Parse implements [Parser].
func (TokenParser) Parse(src string) (*Document, error) {
	var b builder

	for _, tok := range lex(src) {
		switch tok.kind {
		case tokenText:
			b.pending.WriteString(tok.text)

		case tokenAction:
			if err := b.flush(); err != nil {
				return nil, err
			}

			b.handle(ClassifyAction(tok.text))
		}
	}

	return b.finish()
}

// lex splits the source into text chunks and standalone actions. Inline
// actions (those not opening at the start of a line, or followed by
// non-comment text on the same line) stay embedded in the surrounding text
// chunk; the fragment masking resolves them during the YAML flush.
func lex(src string) []token {
	var out []token

	emitted := 0
	pos := 0

	for {
		open := strings.Index(src[pos:], "{{")
		if open < 0 {
			break
		}

		open += pos

		lineStart := strings.LastIndexByte(src[:open], '\n') + 1
		if strings.TrimLeft(src[lineStart:open], " \t") != "" {
			// Mid-line action: inline, skip past it.
			pos = skipAction(src, open)

			continue
		}

		raw, end, ok := takeActionAt(src, open)
		if !ok {
			pos = skipAction(src, open)

			continue
		}

		if lineStart > emitted {
			out = append(out, token{kind: tokenText, text: src[emitted:lineStart]})
		}

		out = append(out, token{kind: tokenAction, text: raw})
		emitted = end
		pos = end
	}

	if emitted < len(src) {
		out = append(out, token{kind: tokenText, text: src[emitted:]})
	}

	return out
}

// takeActionAt extracts a standalone action opening at open. For single-line
// actions the text after the close must be blank or a trailing comment; a
// multi-line action consumes whole lines through the one containing the
// close.
func takeActionAt(src string, open int) (raw string, end int, ok bool) {
	lineEnd := strings.IndexByte(src[open:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += open + 1
	}

	closeAt := strings.Index(src[open:lineEnd], "}}")
	if closeAt >= 0 {
		closeAt += open + 2

		tail := strings.TrimRight(src[closeAt:lineEnd], "\r\n")
		tail = strings.TrimLeft(tail, " \t")

		if tail != "" && !strings.HasPrefix(tail, "#") {
			return "", 0, false
		}

		return src[open:closeAt], lineEnd, true
	}

	// Spans lines: include whole lines until one contains the close.
	end = lineEnd

	for end < len(src) {
		next := strings.IndexByte(src[end:], '\n')
		if next < 0 {
			next = len(src)
		} else {
			next += end + 1
		}

		line := src[end:next]
		end = next

		if strings.Contains(line, "}}") {
			break
		}
	}

	return src[open:end], end, true
}

// skipAction advances past an inline action so the scan does not re-match
// delimiters inside it.
func skipAction(src string, open int) int {
	if closeAt := strings.Index(src[open+2:], "}}"); closeAt >= 0 {
		return open + 2 + closeAt + 2
	}

	return open + 2
}
