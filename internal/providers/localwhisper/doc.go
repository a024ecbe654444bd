// Package localwhisper implements the "localwhisper" transcription provider:
// a CLI wrapper around a local WhisperX-style tool, spawned with
// exec.CommandContext and parsed as incremental JSON segment lines off
// stdout. It declares only the transcription capability.
package localwhisper
