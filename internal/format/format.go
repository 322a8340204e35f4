// Package format rewrites raw model output into Telegram-friendly text:
// markdown headers become emoji-prefixed labels, lab test names are
// underlined and the mandatory self-treatment disclaimer is italicized.
// It only adds markup around substrings that are already present.
package format

import "regexp"

var (
	reHeader2 = regexp.MustCompile(`(?m)^##\s+(.*)$`)
	reHeader3 = regexp.MustCompile(`(?m)^###\s+(.*)$`)
	reHeader4 = regexp.MustCompile(`(?m)^####\s+(.*)$`)

	// Lab test names: a capitalized label followed by a colon and a
	// numeric/alphanumeric value. Heuristic, can misfire on ordinary
	// sentences that happen to match.
	reTestName = regexp.MustCompile(`([A-Z][A-Za-zА-Яа-яЁё\s\-()]+?)\s*(:\s*[0-9.,\-\s\w()<>≥≤\[\]]+[^\n\r]*(?:\n|$))`)

	// The optional surrounding asterisks make repeated formatting a no-op
	// instead of stacking italic markers.
	reDisclaimer    = regexp.MustCompile(`(?i)\*?(самолечение недопустимо[^\n\r.*]*\.?)\*?`)
	reDisclaimerAlt = regexp.MustCompile(`(?i)\*?((?:пользователь\s*не\s*должен|не\s*следует\s*заниматься)\s*(?:самолечением|лечением\s*без\s*врача)[^\n\r.*]*\.?)\*?`)
)

// Response applies the ordered rewrite passes. Order matters: header passes
// run before the test-name heuristic, which sees their output.
func Response(text string) string {
	// The \s+ in each header pattern keeps "##" from matching "###" lines.
	text = reHeader2.ReplaceAllString(text, "🔬 **$1**")
	text = reHeader3.ReplaceAllString(text, "💊 $1")
	text = reHeader4.ReplaceAllString(text, "🧪 $1")

	text = reTestName.ReplaceAllString(text, "___${1}___${2}")

	text = reDisclaimer.ReplaceAllString(text, "*$1*")
	text = reDisclaimerAlt.ReplaceAllString(text, "*$1*")

	return text
}
