// Package history shapes prior conversation turns before they re-enter a
// prompt context window.
package history

import (
	"regexp"
	"strings"
)

// Role tags for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

var (
	// Reference cards are a UI rendering aid appended after the textual
	// answer. The block may span many lines and its HTML is not guaranteed
	// to be balanced, so removal cuts from the opening marker to the end of
	// the string instead of matching tags structurally.
	refBlockRe = regexp.MustCompile(`(?is)<div class="video-references-section">.*`)
	headingRe  = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Sanitize keeps conversation context compact and text-only for RAG prompts.
// Only assistant turns are rewritten; every other role passes through
// verbatim since user-authored input must not be mutated. The step order is
// load-bearing: the reference block must be truncated before the generic tag
// strip sees its markup.
func Sanitize(role, content string) string {
	if role != RoleAssistant {
		return content
	}

	cleaned := refBlockRe.ReplaceAllString(content, "")
	cleaned = headingRe.ReplaceAllString(cleaned, "")
	cleaned = tagRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(cleaned, " "))
}
