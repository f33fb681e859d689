// Package preview manages the artifacts produced by mockup generation.
//
// An artifact is one generated interactive document placed on the canvas,
// together with its display state: view mode (rendered output or raw
// source), an editing flag gating pointer input, and user-resizable
// dimensions. An artifact starts empty when a generation begins and
// becomes populated when the pipeline completes; it never transitions
// back to empty, and a regeneration replaces the document in place so
// the user's view preferences survive.
//
// Thread Safety: Store is safe for concurrent access. Mutations for the
// same artifact id are serialized by the store's lock, so two
// regenerations racing on one id resolve to a last-write-wins order
// instead of interleaved partial state.
//
// Lifecycle: Artifacts live for the server process; the canvas owns
// their removal. There is no server-side persistence.
package preview
