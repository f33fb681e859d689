// Package generate runs the mockup-to-prototype pipeline.
//
// One run is strictly sequential: capture in hand, it creates (or
// targets) an artifact, builds the prompt, performs the model
// round-trip, extracts the document, and populates the artifact. Runs
// for different artifacts are fully independent; runs targeting the
// same artifact are serialized explicitly, since two writers racing on
// one id would otherwise resolve by last-write-wins.
//
// Every failure is local to its run and terminal: a freshly created
// artifact is removed again, a regeneration target keeps its previous
// document, the caller surfaces the error, and the user re-triggers.
// No retries, no partial content.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sketchrun/sketchrun/internal/extract"
	"github.com/sketchrun/sketchrun/internal/llm"
	"github.com/sketchrun/sketchrun/internal/preview"
	"github.com/sketchrun/sketchrun/internal/prompt"
)

// ErrGenerationInFlight means a generation targeting the same artifact
// is still running. Same-id generations are serialized, not raced.
var ErrGenerationInFlight = errors.New("generation already in flight for artifact")

// Capture is a snapshot of a canvas selection: the rasterized image
// plus any text strings found in the drawing. Produced by the canvas
// (an external collaborator); this package only consumes it.
type Capture struct {
	ImageDataURL string   `json:"image"`
	Text         []string `json:"text"`
}

// ConfigStore supplies the user-selected endpoint and model at run
// time, so settings changes apply to the next generation without a
// restart.
type ConfigStore interface {
	Generation() (endpoint, model string)
}

// ModelClient performs the generation round-trip. Satisfied by
// *llm.Client; an interface so tests can substitute a fake.
type ModelClient interface {
	Generate(ctx context.Context, endpoint, model, promptText, imageBase64 string) (llm.Response, error)
}

// Input is everything one pipeline run consumes.
type Input struct {
	Capture Capture
	Theme   prompt.Theme

	// PriorIDs reference earlier artifacts included in the selection,
	// in canvas order. Their documents are fed back into the prompt.
	PriorIDs []uuid.UUID

	// TargetID, when set, regenerates an existing artifact in place
	// instead of creating a new one.
	TargetID uuid.UUID
}

// Pipeline wires the generation steps together.
type Pipeline struct {
	store  *preview.Store
	client ModelClient
	config ConfigStore
	logger *slog.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// New creates a pipeline. logger may be nil.
func New(store *preview.Store, client ModelClient, config ConfigStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		client:   client,
		config:   config,
		logger:   logger,
		tracer:   otel.Tracer("sketchrun/generate"),
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Run executes one generation. On success the returned artifact is
// populated. On failure the error describes which stage failed; an
// artifact created by this run is removed from the store, while a
// regeneration target is left exactly as it was.
func (p *Pipeline) Run(ctx context.Context, in Input) (preview.Artifact, error) {
	ctx, span := p.tracer.Start(ctx, "generate.run")
	defer span.End()

	priors, err := p.resolvePriors(in.PriorIDs)
	if err != nil {
		return preview.Artifact{}, err
	}

	artifact, created, err := p.targetArtifact(in.TargetID)
	if err != nil {
		return preview.Artifact{}, err
	}
	if err := p.acquire(artifact.ID); err != nil {
		return preview.Artifact{}, err
	}
	defer p.release(artifact.ID)

	// A run that created its artifact cleans it up on failure: the
	// caller never learns the id, so a surviving Empty entry would be
	// unreachable except through List. A regeneration target is left
	// untouched, old document and all.
	succeeded := false
	defer func() {
		if created && !succeeded {
			p.store.Remove(artifact.ID)
		}
	}()

	span.SetAttributes(
		attribute.String("artifact.id", artifact.ID.String()),
		attribute.Int("priors", len(priors)),
		attribute.String("theme", string(in.Theme)),
	)

	promptText := prompt.Build(prompt.Request{
		ImageDataURL:   in.Capture.ImageDataURL,
		ExtractedText:  in.Capture.Text,
		Theme:          in.Theme,
		PriorArtifacts: priors,
	})

	endpoint, model := p.config.Generation()
	p.logger.Info("generation started",
		"artifact_id", artifact.ID,
		"model", model,
		"priors", len(priors),
	)

	resp, err := p.generateStep(ctx, endpoint, model, promptText, llm.Base64Payload(in.Capture.ImageDataURL))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return preview.Artifact{}, err
	}

	document, err := extract.Document(resp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return preview.Artifact{}, fmt.Errorf("extracting document for %s: %w", artifact.ID, err)
	}

	populated, err := p.store.CompleteGeneration(artifact.ID, document)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return preview.Artifact{}, err
	}

	succeeded = true
	p.logger.Info("generation completed",
		"artifact_id", populated.ID,
		"document_bytes", len(populated.DocumentContent),
	)
	return populated, nil
}

func (p *Pipeline) generateStep(ctx context.Context, endpoint, model, promptText, image string) (llm.Response, error) {
	ctx, span := p.tracer.Start(ctx, "generate.model_call",
		trace.WithAttributes(attribute.String("model", model)))
	defer span.End()

	resp, err := p.client.Generate(ctx, endpoint, model, promptText, image)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

// resolvePriors loads prior artifacts in the order their ids were
// given. An unknown id is an error: silently dropping a prior would
// change the prompt the user asked for.
func (p *Pipeline) resolvePriors(ids []uuid.UUID) ([]preview.Artifact, error) {
	priors := make([]preview.Artifact, 0, len(ids))
	for _, id := range ids {
		a, err := p.store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("resolving prior artifact: %w", err)
		}
		priors = append(priors, a)
	}
	return priors, nil
}

// targetArtifact resolves the artifact a run writes into, reporting
// whether this run created it.
func (p *Pipeline) targetArtifact(targetID uuid.UUID) (preview.Artifact, bool, error) {
	if targetID == uuid.Nil {
		return p.store.StartGeneration(), true, nil
	}
	a, err := p.store.Get(targetID)
	if err != nil {
		return preview.Artifact{}, false, fmt.Errorf("targeting artifact for regeneration: %w", err)
	}
	return a, false, nil
}

func (p *Pipeline) acquire(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[id]; busy {
		return fmt.Errorf("artifact %s: %w", id, ErrGenerationInFlight)
	}
	p.inFlight[id] = struct{}{}
	return nil
}

func (p *Pipeline) release(id uuid.UUID) {
	p.mu.Lock()
	delete(p.inFlight, id)
	p.mu.Unlock()
}
