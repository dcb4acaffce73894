// Package server implements a local mock of the text transformation backend.
//
// [Backend] serves the same routes as the real service:
//
//   - GET /health
//   - POST /api/auth/login, issuing an HS256 token and the auth_token cookie
//   - GET or POST /api/text/{paraphrase,expand,summarize,translate}, streaming fragments over SSE
//
// Operation routes accept either a Bearer header or the auth cookie. Output is a
// deterministic rewrite of the input so tests and offline development can assert on it.
// [Serve] runs any handler with graceful shutdown.
package server
