// Package language implements the per-turn response-language override.
package language

import "fmt"

// Auto is the sentinel selection meaning "respond in whatever language fits".
const Auto = "Auto"

// supported is the fixed selector list, Auto first.
var supported = []string{
	Auto,
	"English",
	"Hindi",
	"Urdu",
	"Arabic",
	"Spanish",
	"French",
	"German",
	"Japanese",
	"Mandarin",
}

// Supported returns the selectable languages in display order.
func Supported() []string {
	return append([]string(nil), supported...)
}

// Apply decorates an outgoing message with a response-language directive.
// For Auto (or an empty selection) the text passes through unchanged. The
// decorated text is wire-only: the persisted user message always stores the
// raw text, so history stays language-selection-agnostic.
func Apply(raw, selection string) string {
	if selection == "" || selection == Auto {
		return raw
	}
	return fmt.Sprintf(
		"(System Instruction: Please respond in %s. If the user's message is in a different language, translate your understanding but keep the response in %s.) %s",
		selection, selection, raw,
	)
}
