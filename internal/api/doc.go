// Package api is the JSON HTTP surface of sketchrun.
//
// The canvas front end is an external collaborator: it captures
// selections, renders artifacts in sandboxed frames, and talks to this
// API. The surface splits into four groups:
//
//   - Generation: POST /api/v1/generate runs the full pipeline and
//     returns the populated artifact.
//   - Artifacts: read and display-state operations (view toggle,
//     editing flag, resize) on the live artifact store.
//   - Frames: the screenshot export protocol. Each embedded renderer
//     holds an SSE connection on /api/v1/frames/{id}/events and posts
//     captured rasters back to /api/v1/frames/{id}/screenshot; exports
//     are correlated per artifact id by the bridge.
//   - Settings and proxy: the persisted model/endpoint pair, and the
//     verbatim pass-through route the hosted deployment uses to reach
//     a private model endpoint.
//
// Middleware stack (outermost first): recovery → request-id → logging
// → CORS → rate limit → routes. /health bypasses the stack for probes.
package api
