// Package richtext holds HTML fragments received from the ticketing service
// and sanitizes them before they reach a page or a terminal.
package richtext

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policies are safe for concurrent use once built.
var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// HTML is rich text as stored by the ticketing service. It is untrusted until
// passed through Sanitize.
type HTML string

// Sanitize strips scripts, event handlers and other unsafe markup, keeping the
// formatting a resident or manager could have entered.
func (h HTML) Sanitize() template.HTML {
	return template.HTML(ugcPolicy.Sanitize(string(h)))
}

// PlainText drops all markup and collapses whitespace. Used where HTML
// cannot be rendered, such as terminal output.
func (h HTML) PlainText() string {
	text := html.UnescapeString(strictPolicy.Sanitize(string(h)))
	return strings.Join(strings.Fields(text), " ")
}

// IsEmpty reports whether the fragment has no visible text.
func (h HTML) IsEmpty() bool {
	return h.PlainText() == ""
}
