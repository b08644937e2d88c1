// Package llm talks to a local Ollama server to turn a transcript into a
// note title, category and optional summary.
//
// # Request Flow
//
// Analyze counts the prompt tokens (Ollama /api/tokenize, falling back to a
// byte-based estimate), truncates the note from the end when the prompt would
// overflow the 16384-token context window, then POSTs a JSON-format chat
// request to /api/chat. Streamed replies are concatenated until the server
// reports done.
//
// # Retry Behaviour
//
// Transport failures, timeouts and non-200 replies are retried up to
// max_retries times, sleeping retry_backoff * 2^attempt between tries. An
// error object inside a stream aborts immediately. Context cancellation stops
// retries.
//
// # Parsing
//
// The reply must be a JSON object with title and category. When the model
// wraps the object in prose or a code fence the outermost {...} is used.
// Anything else fails with services.ErrInvalidResponse.
//
// # Debugging
//
// With llm.debug enabled each failed exchange is appended to
// llm_debug.jsonl in the state directory.
package llm
