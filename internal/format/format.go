// Package format renders bot-API answers for chat channels. Answers arrive
// as Markdown with [Document N] citations; Telegram wants a small HTML tag
// set, so rendering goes Markdown -> HTML -> reduced HTML.
package format

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/opteee-ai/opteee/internal/botapi"
)

const maxLinkTitleLen = 30

var md = goldmark.New()

var (
	docRefRe       = regexp.MustCompile(`(?i)\[Document (\d+)\]`)
	headingOpenRe  = regexp.MustCompile(`<h[1-6][^>]*>`)
	headingCloseRe = regexp.MustCompile(`</h[1-6]>`)
	anyTagRe       = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)[^>]*>`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// Tags Telegram's HTML parse mode accepts.
var allowedTags = map[string]struct{}{
	"b": {}, "i": {}, "u": {}, "s": {}, "a": {}, "code": {}, "pre": {},
}

// TelegramHTML converts a Markdown answer into Telegram-compatible HTML.
func TelegramHTML(markdown string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		// Malformed input degrades to escaped plain text, never an error.
		return html.EscapeString(markdown)
	}
	out := buf.String()

	out = headingOpenRe.ReplaceAllString(out, "<b>")
	out = headingCloseRe.ReplaceAllString(out, "</b>\n")
	out = strings.ReplaceAll(out, "<strong>", "<b>")
	out = strings.ReplaceAll(out, "</strong>", "</b>")
	out = strings.ReplaceAll(out, "<em>", "<i>")
	out = strings.ReplaceAll(out, "</em>", "</i>")
	out = strings.ReplaceAll(out, "<li>", "• ")
	out = strings.ReplaceAll(out, "</li>", "\n")
	out = strings.ReplaceAll(out, "</p>", "\n\n")

	out = anyTagRe.ReplaceAllStringFunc(out, func(tag string) string {
		name := strings.ToLower(anyTagRe.FindStringSubmatch(tag)[1])
		if _, ok := allowedTags[name]; ok {
			return tag
		}
		return ""
	})

	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// LinkDocumentRefs replaces [Document N] citations with Markdown links to
// the matching video source. Without sources the bare citations are removed
// since they point at nothing the reader can open.
func LinkDocumentRefs(answer string, sources []botapi.Source) string {
	if len(sources) == 0 {
		return docRefRe.ReplaceAllString(answer, "")
	}

	return docRefRe.ReplaceAllStringFunc(answer, func(ref string) string {
		num, err := strconv.Atoi(docRefRe.FindStringSubmatch(ref)[1])
		if err != nil || num < 1 || num > len(sources) {
			return fmt.Sprintf("**[Video %s]**", docRefRe.FindStringSubmatch(ref)[1])
		}
		src := sources[num-1]

		stamp := ""
		if src.StartTimestampSeconds > 0 {
			stamp = " @ " + FormatTime(src.StartTimestampSeconds)
		}
		return fmt.Sprintf("**[Video %d%s: %s](%s)**", num, stamp, linkTitle(src), sourceURL(src))
	})
}

func linkTitle(src botapi.Source) string {
	title := src.Title
	if title == "" {
		title = "Untitled Video"
	}
	replacer := strings.NewReplacer("|", "-", "[", "(", "]", ")")
	title = replacer.Replace(title)
	if len(title) > maxLinkTitleLen {
		title = title[:maxLinkTitleLen-3] + "..."
	}
	return title
}

func sourceURL(src botapi.Source) string {
	if src.VideoURLWithTimestamp != "" {
		return src.VideoURLWithTimestamp
	}
	if src.URL != "" {
		return src.URL
	}
	if src.VideoID != "" {
		url := "https://www.youtube.com/watch?v=" + src.VideoID
		if src.StartTimestampSeconds > 0 {
			url += fmt.Sprintf("&t=%ds", int(src.StartTimestampSeconds))
		}
		return url
	}
	return "#"
}

// FormatTime renders a timestamp in seconds as M:SS.
func FormatTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
