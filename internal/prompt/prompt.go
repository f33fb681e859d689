// Package prompt assembles the text prompt sent to the vision model.
//
// Build is a pure function: identical requests yield byte-identical
// prompts, which together with the model's pinned decoding options
// makes a generation reproducible. Section order is fixed and the theme
// directive is always the final line, emitted exactly once.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sketchrun/sketchrun/internal/preview"
)

// Theme names the color scheme the generated prototype should use.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SystemPreamble frames the task for the model. Always first.
const SystemPreamble = `You are an expert web developer who specializes in turning ` +
	`low-fidelity wireframes into working prototypes. Your job is to accept a ` +
	`hand-drawn design and turn it into an interactive and responsive prototype ` +
	`built as a single HTML file. Include everything the page needs inline: put ` +
	`CSS in a style tag and JavaScript in a script tag, and load any extra ` +
	`dependencies from a CDN. If the design is ambiguous, make your best guess ` +
	`and fill in the gaps; the user would rather see a complete attempt than a ` +
	`question. Respond with the HTML file only.`

// UserInstruction is used when the request carries no prior results.
const UserInstruction = `Here is a wireframe of a design. ` +
	`Please build it as a single-page prototype.`

// UserInstructionWithPriors is used when the design includes one or
// more of the model's earlier results, so the model treats them as
// drafts to iterate on rather than fresh input.
const UserInstructionWithPriors = `Here is a wireframe of a design that includes ` +
	`one or more of your previous results with annotations drawn on top. ` +
	`Please update your previous work according to the annotations and build ` +
	`the result as a single-page prototype.`

// Request carries everything Build consumes for one generation.
// Built fresh per invocation and never mutated afterwards.
type Request struct {
	// ImageDataURL is the rasterized canvas selection as a data URL.
	// Not part of the prompt text; it travels in the model request's
	// image list.
	ImageDataURL string

	// ExtractedText lists the strings found in the design, in canvas order.
	ExtractedText []string

	// Theme is the requested color scheme. Empty defaults to light.
	Theme Theme

	// PriorArtifacts are earlier results included in the selection,
	// in their original order.
	PriorArtifacts []preview.Artifact
}

// Build assembles the prompt. Absent optional fields produce shorter
// prompts, never errors.
func Build(req Request) string {
	var b strings.Builder

	b.WriteString(SystemPreamble)
	b.WriteString("\n\n")

	if len(req.PriorArtifacts) > 0 {
		b.WriteString(UserInstructionWithPriors)
	} else {
		b.WriteString(UserInstruction)
	}
	b.WriteString("\n\n")

	if len(req.ExtractedText) > 0 {
		b.WriteString("Here is a list of text that we found in the design:\n")
		for _, item := range req.ExtractedText {
			b.WriteString(item)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, prior := range req.PriorArtifacts {
		b.WriteString("The design includes one of your previous results. ")
		b.WriteString("Here is the HTML you came up with for it:\n")
		b.WriteString(prior.DocumentContent)
		b.WriteString("\n\n")
	}

	theme := req.Theme
	if theme == "" {
		theme = ThemeLight
	}
	fmt.Fprintf(&b, "Please make your result use the %s theme.", theme)

	return b.String()
}
