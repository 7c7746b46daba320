package fact

import "strings"

// Escape and Unescape implement the cross-cutting "_dot_" convention:
// every fact stored or emitted uses the escaped form; translation back
// to a real filesystem path happens only at the effector boundary.
const dotEscape = "_dot_"

// Escape replaces "." with the escaped token. It is a bijection for any
// filename that does not already contain the token itself.
func Escape(name string) string {
	return strings.ReplaceAll(name, ".", dotEscape)
}

// Unescape reverses Escape.
func Unescape(name string) string {
	return strings.ReplaceAll(name, dotEscape, ".")
}
