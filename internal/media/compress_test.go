package media

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func fakeCommandContext(script string) func(context.Context, string, ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := []string{"-c", script}
		cmd := exec.CommandContext(ctx, "/bin/sh", cs...)
		return cmd
	}
}

func TestCompressRejectsOriginalMode(t *testing.T) {
	_, err := Compress(context.Background(), "in.mp3", t.TempDir(), CompressOptions{Mode: ModeOriginal})
	if err == nil {
		t.Fatal("expected error for ModeOriginal")
	}
}

func TestCompressInvokesFFmpegAndReturnsOutputPath(t *testing.T) {
	original := commandContext
	defer func() { commandContext = original }()

	// Emit one progress block to stdout, matching ffmpeg's -progress pipe:1 key=value format, then exit 0.
	commandContext = fakeCommandContext(`echo "out_time_us=1000000"; echo "speed=1.0x"; echo "progress=end"`)

	outDir := t.TempDir()
	out, err := Compress(context.Background(), filepath.Join(outDir, "meeting.wav"), outDir, CompressOptions{
		Mode:        ModeCompressed,
		BitrateKbps: 24,
	})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if filepath.Ext(out) != ".ogg" {
		t.Fatalf("expected .ogg output, got %q", out)
	}
}

func TestCompressPropagatesFailure(t *testing.T) {
	original := commandContext
	defer func() { commandContext = original }()
	commandContext = fakeCommandContext(`echo "boom" 1>&2; exit 1`)

	_, err := Compress(context.Background(), "in.wav", t.TempDir(), CompressOptions{Mode: ModeCompressed})
	if err == nil {
		t.Fatal("expected error on nonzero exit")
	}
}

func TestCompressRespectsContextCancellation(t *testing.T) {
	original := commandContext
	defer func() { commandContext = original }()
	commandContext = fakeCommandContext(`sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Compress(ctx, "in.wav", t.TempDir(), CompressOptions{Mode: ModeCompressed})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
