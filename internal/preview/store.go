package preview

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the live artifacts for one canvas session.
//
// All mutations go through named transition methods; callers never hold
// a pointer into the store. Get and List return copies, so readers see
// a consistent snapshot without racing the generation pipeline.
type Store struct {
	mu        sync.RWMutex
	artifacts map[uuid.UUID]*Artifact
	logger    *slog.Logger
}

// NewStore creates an empty artifact store.
// logger may be nil, in which case slog.Default is used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		artifacts: make(map[uuid.UUID]*Artifact),
		logger:    logger,
	}
}

// StartGeneration creates a new empty artifact with default dimensions
// and returns a copy of it. The artifact renders as a loading
// placeholder until CompleteGeneration assigns its document.
func (s *Store) StartGeneration() Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	a := &Artifact{
		ID:        uuid.New(),
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		ViewMode:  ViewRendered,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.artifacts[a.ID] = a

	s.logger.Debug("generation started", "artifact_id", a.ID)
	return *a
}

// CompleteGeneration assigns the generated document to the artifact.
//
// The assignment is atomic from a reader's perspective and replaces any
// previous document in place: view mode and editing state are not
// touched, so a regeneration does not disturb how the user was looking
// at the artifact.
func (s *Store) CompleteGeneration(id uuid.UUID, content string) (Artifact, error) {
	if content == "" {
		return Artifact{}, ErrEmptyDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return Artifact{}, fmt.Errorf("complete generation %s: %w", id, ErrNotFound)
	}

	a.DocumentContent = content
	a.UpdatedAt = time.Now()

	s.logger.Debug("generation completed",
		"artifact_id", id,
		"document_bytes", len(content),
	)
	return *a, nil
}

// Get returns a copy of the artifact.
func (s *Store) Get(id uuid.UUID) (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	if !ok {
		return Artifact{}, fmt.Errorf("get artifact %s: %w", id, ErrNotFound)
	}
	return *a, nil
}

// List returns copies of all artifacts, oldest first.
func (s *Store) List() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ToggleView flips the artifact between rendered and code view and
// returns the new mode. Purely presentational; legal in any state.
func (s *Store) ToggleView(id uuid.UUID) (ViewMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return "", fmt.Errorf("toggle view %s: %w", id, ErrNotFound)
	}

	if a.ViewMode == ViewRendered {
		a.ViewMode = ViewCode
	} else {
		a.ViewMode = ViewRendered
	}
	a.UpdatedAt = time.Now()
	return a.ViewMode, nil
}

// SetEditing sets whether pointer input passes through to the embedded
// content (true) or is captured by the canvas (false).
func (s *Store) SetEditing(id uuid.UUID, editing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return fmt.Errorf("set editing %s: %w", id, ErrNotFound)
	}
	a.Editing = editing
	a.UpdatedAt = time.Now()
	return nil
}

// Resize updates the artifact's dimensions. Both must be positive.
func (s *Store) Resize(id uuid.UUID, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize to %gx%g: %w", width, height, ErrInvalidDimensions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return fmt.Errorf("resize artifact %s: %w", id, ErrNotFound)
	}
	a.Width = width
	a.Height = height
	a.UpdatedAt = time.Now()
	return nil
}

// Remove deletes the artifact. The canvas calls this when the shape is
// deleted; a missing id is not an error.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, id)
}
