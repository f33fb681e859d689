package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchrun/sketchrun/internal/extract"
	"github.com/sketchrun/sketchrun/internal/llm"
	"github.com/sketchrun/sketchrun/internal/preview"
	"github.com/sketchrun/sketchrun/internal/prompt"
)

const (
	timeoutEventually = 2 * time.Second
	pollEventually    = 5 * time.Millisecond
)

type staticConfig struct {
	endpoint string
	model    string
}

func (c staticConfig) Generation() (string, string) { return c.endpoint, c.model }

// fakeClient returns canned responses without a network.
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	resp    llm.Response
	err     error
	block   chan struct{} // when set, Generate waits until closed
}

func (f *fakeClient) Generate(_ context.Context, _, _, promptText, _ string) (llm.Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, promptText)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.resp, f.err
}

func newMockModelServer(t *testing.T, reply string) (*httptest.Server, *[]llm.GenerateRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []llm.GenerateRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		body, err := json.Marshal(map[string]any{"response": reply, "done": true})
		require.NoError(t, err)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	const document = "<html><body><button>Login</button></body></html>"
	server, requests := newMockModelServer(t, "```html\n"+document+"\n```")

	store := preview.NewStore(nil)
	pipe := New(store, llm.NewClient(server.Client(), nil), staticConfig{server.URL, "qwen2.5:7b"}, nil)

	got, err := pipe.Run(context.Background(), Input{
		Capture: Capture{
			ImageDataURL: "data:image/png;base64,AAA",
			Text:         []string{"Login"},
		},
		Theme: prompt.ThemeDark,
	})
	require.NoError(t, err)

	assert.Equal(t, document, got.DocumentContent)
	assert.Equal(t, preview.StatePopulated, got.State())
	assert.Equal(t, preview.ViewRendered, got.ViewMode)

	require.Len(t, *requests, 1)
	sent := (*requests)[0]
	assert.Equal(t, "qwen2.5:7b", sent.Model)
	assert.Equal(t, []string{"AAA"}, sent.Images, "data URL prefix must be stripped")
	assert.Contains(t, sent.Prompt, "Login")
	assert.True(t, strings.HasSuffix(sent.Prompt, "Please make your result use the dark theme."))
}

func TestRun_SecondGenerationQuotesPriorOnce(t *testing.T) {
	t.Parallel()

	const firstDoc = "<html><body>first draft</body></html>"
	server, requests := newMockModelServer(t, "```html\n<html>v2</html>\n```")

	store := preview.NewStore(nil)
	first := store.StartGeneration()
	_, err := store.CompleteGeneration(first.ID, firstDoc)
	require.NoError(t, err)

	pipe := New(store, llm.NewClient(server.Client(), nil), staticConfig{server.URL, "qwen2.5:7b"}, nil)
	_, err = pipe.Run(context.Background(), Input{
		Capture:  Capture{ImageDataURL: "data:image/png;base64,BBB"},
		Theme:    prompt.ThemeLight,
		PriorIDs: []uuid.UUID{first.ID},
	})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	sentPrompt := (*requests)[0].Prompt
	assert.Equal(t, 1, strings.Count(sentPrompt, firstDoc),
		"the prior's document must be quoted exactly once")
	assert.Contains(t, sentPrompt, prompt.UserInstructionWithPriors)
}

func TestRun_ModelFailureRemovesCreatedArtifact(t *testing.T) {
	t.Parallel()

	store := preview.NewStore(nil)
	client := &fakeClient{err: fmt.Errorf("%w: connection refused", llm.ErrModelUnavailable)}
	pipe := New(store, client, staticConfig{"http://unreachable/api/generate", "m"}, nil)

	_, err := pipe.Run(context.Background(), Input{Capture: Capture{ImageDataURL: "data:,x"}})
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)

	assert.Empty(t, store.List(),
		"a failed run must not leave its unreferenced Empty artifact behind")
}

func TestRun_ExtractionFailureRemovesCreatedArtifact(t *testing.T) {
	t.Parallel()

	store := preview.NewStore(nil)
	client := &fakeClient{resp: llm.Response{Content: "I cannot build that, sorry."}}
	pipe := New(store, client, staticConfig{"http://model/api/generate", "m"}, nil)

	_, err := pipe.Run(context.Background(), Input{Capture: Capture{ImageDataURL: "data:,x"}})
	assert.ErrorIs(t, err, extract.ErrNoDocument)

	assert.Empty(t, store.List(),
		"a failed run must not leave its unreferenced Empty artifact behind")
}

func TestRun_FailedRegenerationKeepsTarget(t *testing.T) {
	t.Parallel()

	const original = "<html>original</html>"

	store := preview.NewStore(nil)
	target := store.StartGeneration()
	_, err := store.CompleteGeneration(target.ID, original)
	require.NoError(t, err)

	client := &fakeClient{err: fmt.Errorf("%w: connection refused", llm.ErrModelUnavailable)}
	pipe := New(store, client, staticConfig{"http://unreachable/api/generate", "m"}, nil)

	_, err = pipe.Run(context.Background(), Input{
		Capture:  Capture{ImageDataURL: "data:,x"},
		TargetID: target.ID,
	})
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)

	kept, err := store.Get(target.ID)
	require.NoError(t, err)
	assert.Equal(t, original, kept.DocumentContent,
		"a failed regeneration must not disturb the existing artifact")
}

func TestRun_EmptyEndpointFailsFast(t *testing.T) {
	t.Parallel()

	store := preview.NewStore(nil)
	pipe := New(store, llm.NewClient(nil, nil), staticConfig{"", "m"}, nil)

	_, err := pipe.Run(context.Background(), Input{Capture: Capture{ImageDataURL: "data:,x"}})
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestRun_UnknownPrior(t *testing.T) {
	t.Parallel()

	store := preview.NewStore(nil)
	pipe := New(store, &fakeClient{}, staticConfig{"http://model", "m"}, nil)

	_, err := pipe.Run(context.Background(), Input{
		Capture:  Capture{ImageDataURL: "data:,x"},
		PriorIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, preview.ErrNotFound)
	assert.Empty(t, store.List(), "no artifact is created when priors cannot be resolved")
}

func TestRun_RegenerationReplacesInPlace(t *testing.T) {
	t.Parallel()

	server, _ := newMockModelServer(t, "```html\n<html>regenerated</html>\n```")

	store := preview.NewStore(nil)
	target := store.StartGeneration()
	_, err := store.CompleteGeneration(target.ID, "<html>original</html>")
	require.NoError(t, err)
	_, err = store.ToggleView(target.ID) // user prefers code view
	require.NoError(t, err)

	pipe := New(store, llm.NewClient(server.Client(), nil), staticConfig{server.URL, "m"}, nil)
	got, err := pipe.Run(context.Background(), Input{
		Capture:  Capture{ImageDataURL: "data:image/png;base64,CCC"},
		TargetID: target.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, target.ID, got.ID, "regeneration must not mint a new artifact")
	assert.Equal(t, "<html>regenerated</html>", got.DocumentContent)
	assert.Equal(t, preview.ViewCode, got.ViewMode, "display preferences survive regeneration")

	require.Len(t, store.List(), 1)
}

func TestRun_UnknownRegenerationTarget(t *testing.T) {
	t.Parallel()

	store := preview.NewStore(nil)
	pipe := New(store, &fakeClient{}, staticConfig{"http://model", "m"}, nil)

	_, err := pipe.Run(context.Background(), Input{
		Capture:  Capture{ImageDataURL: "data:,x"},
		TargetID: uuid.New(),
	})
	assert.ErrorIs(t, err, preview.ErrNotFound)
}

func TestRun_SameArtifactSerialized(t *testing.T) {
	t.Parallel()

	store := preview.NewStore(nil)
	target := store.StartGeneration()

	block := make(chan struct{})
	client := &fakeClient{
		resp:  llm.Response{Content: "<html>slow</html>"},
		block: block,
	}
	pipe := New(store, client, staticConfig{"http://model", "m"}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := pipe.Run(context.Background(), Input{
			Capture:  Capture{ImageDataURL: "data:,x"},
			TargetID: target.ID,
		})
		done <- err
	}()

	// Wait for the first run to reach the model call.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.prompts) == 1
	}, timeoutEventually, pollEventually)

	_, err := pipe.Run(context.Background(), Input{
		Capture:  Capture{ImageDataURL: "data:,x"},
		TargetID: target.ID,
	})
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	close(block)
	require.NoError(t, <-done)
}
