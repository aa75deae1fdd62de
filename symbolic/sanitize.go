package symbolic

import (
	"fmt"
	"strings"

	"go.jacobcolvin.com/helmschema/fused"
)

// The interpreter needs a YAML location for each template action, but the
// fused tree flushes YAML fragments at control-flow boundaries, so nesting
// that spans a conditional is not visible in the tree alone. To recover it,
// the source is sanitized: control-flow actions and comments are erased,
// define bodies are dropped, and every remaining expression action is
// replaced with a unique placeholder scalar. The sanitized text is plain
// YAML; parsing it yields the true path of every placeholder.

const usePlaceholder = "__helm_use_"

// sanitizedAction records one expression action in source order.
type sanitizedAction struct {
	text string
}

// sanitizeSource rewrites src into placeholder YAML and returns the
// expression actions in source order, index-aligned with the placeholders.
func sanitizeSource(src string) (string, []sanitizedAction) {
	var (
		sb      strings.Builder
		actions []sanitizedAction
		stack   []openFrame
	)

	rest := src

	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			writeText(&sb, rest, stack)

			break
		}

		writeText(&sb, rest[:open], stack)
		rest = rest[open:]

		raw, remainder := cutAction(rest)
		rest = remainder

		action := fused.ClassifyAction(raw)

		switch action.Kind {
		case fused.ActionComment:

		case fused.ActionIf, fused.ActionRange, fused.ActionWith:
			stack = append(stack, openFrame{define: false})

		case fused.ActionDefine:
			stack = append(stack, openFrame{define: true})

		case fused.ActionBlock:
			stack = append(stack, openFrame{define: false})

		case fused.ActionElseIf:
			stack = append(stack, openFrame{define: false, sharesEnd: true})

		case fused.ActionElse:

		case fused.ActionEnd:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if !top.sharesEnd {
					break
				}
			}

		case fused.ActionExpr:
			if insideDefine(stack) {
				continue
			}

			// Assignments render nothing; a placeholder for one would be a
			// stray scalar that breaks the document.
			if strings.Contains(action.Text, ":=") {
				continue
			}

			sb.WriteString(fmt.Sprintf("%s%d__", usePlaceholder, len(actions)))
			actions = append(actions, sanitizedAction{text: action.Text})
		}
	}

	return sb.String(), actions
}

type openFrame struct {
	define    bool
	sharesEnd bool
}

func insideDefine(stack []openFrame) bool {
	for _, f := range stack {
		if f.define {
			return true
		}
	}

	return false
}

// writeText emits literal source text, dropping anything inside a define
// body so helper-only files do not pollute the placeholder document.
func writeText(sb *strings.Builder, text string, stack []openFrame) {
	if !insideDefine(stack) {
		sb.WriteString(text)
	}
}

// cutAction splits off one raw {{...}} action. An unterminated action
// swallows the rest of the input, mirroring the fused parser backends.
func cutAction(s string) (raw, rest string) {
	closeAt := strings.Index(s, "}}")
	if closeAt < 0 {
		return s, ""
	}

	return s[:closeAt+2], s[closeAt+2:]
}
