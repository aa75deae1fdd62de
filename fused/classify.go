package fused

import "strings"

// ActionKind classifies the text of a single template action.
type ActionKind int

// Action kinds, in the order they are handled by the parser backends.
const (
	ActionExpr ActionKind = iota
	ActionComment
	ActionIf
	ActionElse
	ActionElseIf
	ActionEnd
	ActionRange
	ActionWith
	ActionDefine
	ActionBlock
)

// Action is a classified template action with its carried text: the
// condition for if, the header for range/with, the name for define/block,
// the comment body, or the full expression.
type Action struct {
	Kind ActionKind
	Text string
}

// ClassifyAction strips the action delimiters and trim markers from raw and
// classifies the remaining text. Both parser backends and the symbolic
// interpreter's source sanitizer rely on this single classifier so they
// always agree on what counts as control flow.
func ClassifyAction(raw string) Action {
	s := StripDelimiters(raw)

	if strings.HasPrefix(s, "/*") {
		return Action{Kind: ActionComment, Text: s}
	}

	keyword, rest := splitKeyword(s)

	switch keyword {
	case "if":
		return Action{Kind: ActionIf, Text: rest}
	case "range":
		return Action{Kind: ActionRange, Text: rest}
	case "with":
		return Action{Kind: ActionWith, Text: rest}
	case "define":
		return Action{Kind: ActionDefine, Text: dequote(rest)}
	case "block":
		return Action{Kind: ActionBlock, Text: rest}
	case "else":
		if cond, ok := strings.CutPrefix(rest, "if"); ok {
			return Action{Kind: ActionElseIf, Text: strings.TrimSpace(cond)}
		}

		return Action{Kind: ActionElse}
	case "end":
		return Action{Kind: ActionEnd}
	}

	return Action{Kind: ActionExpr, Text: s}
}

// StripDelimiters removes the {{ }} delimiters and the - whitespace trim
// markers from a raw action, returning the trimmed inner text.
func StripDelimiters(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "{{")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimSuffix(s, "}}")
	s = strings.TrimSuffix(strings.TrimSpace(s), "-")

	return strings.TrimSpace(s)
}

// splitKeyword splits off the first whitespace-delimited word.
func splitKeyword(s string) (keyword, rest string) {
	idx := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if idx < 0 {
		return s, ""
	}

	return s[:idx], strings.TrimSpace(s[idx:])
}

// dequote strips one level of surrounding double quotes. Define names are
// written quoted; block headers may carry an argument and are left as-is.
func dequote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}

	return s
}
