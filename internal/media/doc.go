// Package media wraps the external ffprobe/ffmpeg binaries INGEST shells out
// to: ffprobe/ inspects a source file's duration and format, and this
// package's Compress applies the configured compression mode.
package media
