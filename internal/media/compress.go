package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
)

var commandContext = exec.CommandContext

// CompressionMode selects the transform INGEST applies to a source file.
type CompressionMode string

const (
	ModeOriginal   CompressionMode = "original"
	ModeCompressed CompressionMode = "compressed"
	ModeOptimized  CompressionMode = "optimized"
)

// ProgressUpdate reports one ffmpeg encode progress line.
type ProgressUpdate struct {
	OutTimeSeconds float64
	Speed          string
}

// CompressOptions configures Compress.
type CompressOptions struct {
	Binary          string
	Mode            CompressionMode
	BitrateKbps     int
	TotalSeconds    float64 // for progress-bar scaling; 0 disables percentage display
	ShowProgressBar bool
	Progress        func(ProgressUpdate)
}

// Compress transcodes inputPath into outputPath under outDir according to
// mode. ModeOriginal is a no-op the caller should special-case as a copy;
// Compress only handles the two ffmpeg-driven modes.
func Compress(ctx context.Context, inputPath, outDir string, opts CompressOptions) (string, error) {
	if inputPath == "" {
		return "", errors.New("input path required")
	}
	if outDir == "" {
		return "", errors.New("output directory required")
	}
	if opts.Mode == ModeOriginal {
		return "", errors.New("compress: ModeOriginal has no ffmpeg transform")
	}

	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	bitrate := opts.BitrateKbps
	if bitrate <= 0 {
		bitrate = 24
	}

	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outputPath := filepath.Join(outDir, stem+".ogg")

	args := []string{"-y", "-i", inputPath, "-vn", "-c:a", "libopus", "-b:a", fmt.Sprintf("%dk", bitrate)}
	if opts.Mode == ModeOptimized {
		args = append(args, "-af", "silenceremove=start_periods=1:start_silence=0.5:start_threshold=-50dB:detection=peak")
	}
	args = append(args, "-progress", "pipe:1", "-nostats", outputPath)

	cmd := commandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start ffmpeg: %w", err)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgressBar && opts.TotalSeconds > 0 {
		bar = progressbar.NewOptions(int(opts.TotalSeconds),
			progressbar.OptionSetDescription("compressing"),
			progressbar.OptionSetItsString("s"),
			progressbar.OptionClearOnFinish(),
		)
	}

	scanner := bufio.NewScanner(stdout)
	var lastSeconds float64
	var lastSpeed string
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "out_time_us":
			if micros, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				lastSeconds = micros / 1_000_000
				if bar != nil {
					_ = bar.Set(int(lastSeconds))
				}
			}
		case "speed":
			lastSpeed = strings.TrimSpace(strings.TrimSuffix(value, "x"))
		}
		if opts.Progress != nil {
			opts.Progress(ProgressUpdate{OutTimeSeconds: lastSeconds, Speed: lastSpeed})
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read ffmpeg progress: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("ffmpeg compress failed: %w: %s", err, strings.TrimSpace(lastLines(stderr.String(), 5)))
	}
	return outputPath, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
