package briefing

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&rsquo;", "'",
		"&ldquo;", `"`,
		"&rdquo;", `"`,
	)
)

// StripMarkup flattens forecaster-authored HTML into plain prompt text: tags
// become a single space, a fixed set of named entities is decoded, and runs
// of whitespace collapse to one space. Stripping already-plain text is a
// no-op.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	text := tagPattern.ReplaceAllString(s, " ")
	text = entityReplacer.Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
