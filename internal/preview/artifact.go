package preview

import (
	"time"

	"github.com/google/uuid"
)

// ViewMode selects how a populated artifact is displayed.
type ViewMode string

const (
	// ViewRendered shows the document in the embedded renderer.
	ViewRendered ViewMode = "rendered"

	// ViewCode shows the document source.
	ViewCode ViewMode = "code"
)

// State is the artifact's lifecycle state, derived from its content.
type State string

const (
	// StateEmpty means generation has started but no document has
	// arrived; the canvas shows a loading placeholder.
	StateEmpty State = "empty"

	// StatePopulated means a document was assigned; the canvas shows
	// the renderer or the source, per ViewMode.
	StatePopulated State = "populated"
)

// Default artifact dimensions, a 16:9 box at two thirds of 960x540.
const (
	DefaultWidth  float64 = 960 * 2 / 3
	DefaultHeight float64 = 540 * 2 / 3
)

// Artifact represents one generated result on the canvas.
//
// Zero values:
//   - ID: uuid.Nil (invalid, assigned by the store)
//   - DocumentContent: "" (empty until generation completes; assignment
//     is all-or-nothing, never partial)
//   - Width/Height: 0 (invalid, store assigns defaults)
//   - ViewMode: "" (invalid, store assigns ViewRendered)
//   - Editing: false (pointer input captured by the canvas)
type Artifact struct {
	ID              uuid.UUID `json:"id"`
	DocumentContent string    `json:"document_content"`
	Width           float64   `json:"width"`
	Height          float64   `json:"height"`
	ViewMode        ViewMode  `json:"view_mode"`
	Editing         bool      `json:"editing"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// State reports whether the artifact has received its document.
func (a *Artifact) State() State {
	if a.DocumentContent == "" {
		return StateEmpty
	}
	return StatePopulated
}
