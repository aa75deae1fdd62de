// Package stringtest provides small helpers for constructing multi-line
// string fixtures in tests with explicit line endings, e.g. Helm template
// sources and expected S-expression renderings.
package stringtest

import "strings"

// JoinLF joins the given lines with LF line endings.
//
// Example:
//
//	src := stringtest.JoinLF(
//		"{{- if .Values.enabled }}",
//		"foo: bar",
//		"{{- end }}",
//	)
func JoinLF(lines ...string) string {
	return strings.Join(lines, "\n")
}

// JoinCRLF joins the given lines with CRLF line endings, for asserting
// behavior on Windows-style input.
func JoinCRLF(lines ...string) string {
	return strings.Join(lines, "\r\n")
}
