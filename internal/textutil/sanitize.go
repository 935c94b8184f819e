package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

var (
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	bareURLPattern      = regexp.MustCompile(`https?://\S+`)
	emphasisPattern     = regexp.MustCompile(`[*_~]{1,3}([^*_~]+)[*_~]{1,3}`)
	headingPattern      = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	quotePattern        = regexp.MustCompile(`(?m)^>\s*`)
	whitespacePattern   = regexp.MustCompile(`[ \t]+`)
	blankLinesPattern   = regexp.MustCompile(`\n{3,}`)
)

// CleanStoryText turns Reddit post markdown into plain prose suitable for
// narration. Links keep their label text, bare URLs and markdown decoration
// are dropped, and the result is NFC-normalized with collapsed whitespace.
func CleanStoryText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = bareURLPattern.ReplaceAllString(text, "")
	text = emphasisPattern.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	text = quotePattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// DeriveScript builds the narration script from a story's title and body. The
// title leads so listeners get the hook before the story, and a terminal
// period is added when the title lacks sentence-ending punctuation.
func DeriveScript(title, body string) string {
	title = CleanStoryText(title)
	body = CleanStoryText(body)
	if title != "" && !strings.ContainsAny(title[len(title)-1:], ".!?") {
		title += "."
	}
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + "\n\n" + body
	}
}
