// Package openrelay implements the "openrelay" provider: an HTTP JSON client
// against an OpenRouter-shaped chat completions endpoint, exercising both the
// refinement (schema-directed structured extraction) and transcription
// (posting an audio reference to a hosted STT-compatible endpoint)
// capabilities.
package openrelay
