// Package extract locates the generated HTML document inside a model
// reply.
//
// Models wrap their output inconsistently: some return a bare HTML
// file, some fence it in a markdown code block, some add prose around
// either. The boundary rule here is deliberate and fixed:
//
//  1. The first fenced code block labeled "html" wins. An unlabeled
//     fence also wins if its body starts with an HTML document marker.
//     Fences are stripped; the body is returned verbatim.
//  2. Otherwise, the substring from the first "<!DOCTYPE html" or
//     "<html" through the last "</html>" (inclusive) wins. A missing
//     closing tag extends the document to the end of the reply, since
//     a truncated tail is still more useful than nothing.
//  3. Anything else is ErrNoDocument. Prose-only replies are a
//     generation failure, not a document.
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/sketchrun/sketchrun/internal/llm"
)

// ErrNoDocument is returned when the reply contains no recognizable
// HTML document.
var ErrNoDocument = errors.New("no document found in model reply")

// fencePattern matches a markdown code fence with an optional language
// tag, capturing the tag and the body. (?s) lets the body span lines.
var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9]*)[ \t]*\r?\n(.*?)```")

// Document extracts the generated document from a canonical response.
// Internal whitespace is preserved verbatim; only the delimiters are
// stripped.
func Document(resp llm.Response) (string, error) {
	content := resp.Content

	for _, m := range fencePattern.FindAllStringSubmatch(content, -1) {
		lang, body := m[1], m[2]
		body = strings.TrimSuffix(strings.TrimSuffix(body, "\n"), "\r")
		if strings.EqualFold(lang, "html") {
			return body, nil
		}
		if lang == "" && isDocumentStart(body) {
			return body, nil
		}
	}

	start := documentStart(content)
	if start < 0 {
		return "", ErrNoDocument
	}

	end := lastIndexFold(content, "</html>")
	if end > start {
		return content[start : end+len("</html>")], nil
	}
	return content[start:], nil
}

// documentStart returns the offset of the first document marker, or -1.
//
// The markers are matched case-insensitively on the original bytes:
// slicing by offsets found in a ToLower copy would be wrong, since
// lowering can change byte lengths (U+0130 "İ" lowers to two runes).
func documentStart(s string) int {
	if i := indexFold(s, "<!doctype html"); i >= 0 {
		return i
	}
	html := indexFold(s, "<html")
	// "<html" alone could be prose mentioning the tag mid-sentence;
	// require it to open a tag.
	if html >= 0 {
		rest := s[html+len("<html"):]
		if rest == "" || rest[0] == '>' || rest[0] == ' ' || rest[0] == '\n' || rest[0] == '\t' {
			return html
		}
	}
	return -1
}

func isDocumentStart(body string) bool {
	trimmed := strings.TrimSpace(body)
	return hasPrefixFold(trimmed, "<!doctype") || hasPrefixFold(trimmed, "<html")
}

// indexFold returns the first index of needle in s ignoring ASCII
// case. needle must be lowercase ASCII, which keeps the returned
// offset valid in s itself.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if matchFold(s[i:], needle) {
			return i
		}
	}
	return -1
}

// lastIndexFold is indexFold from the right.
func lastIndexFold(s, needle string) int {
	for i := len(s) - len(needle); i >= 0; i-- {
		if matchFold(s[i:], needle) {
			return i
		}
	}
	return -1
}

func hasPrefixFold(s, needle string) bool {
	return matchFold(s, needle)
}

// matchFold reports whether s starts with the lowercase ASCII needle,
// comparing byte-wise with ASCII case folding.
func matchFold(s, needle string) bool {
	if len(s) < len(needle) {
		return false
	}
	for i := 0; i < len(needle); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != needle[i] {
			return false
		}
	}
	return true
}
