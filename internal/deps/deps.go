package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// PipelineRequirements lists the external binaries the INGEST and
// localwhisper stages shell out to. Its caller is preflight.CheckSystemDeps,
// which the `status` command reaches through preflight.RunAll.
func PipelineRequirements() []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "media compression during INGEST"},
		{Name: "FFprobe", Command: "ffprobe", Description: "media inspection during INGEST"},
		{Name: "Whisper", Command: "whisper", Description: "local transcription via the localwhisper provider", Optional: true},
	}
}

// Requirement defines an external dependency inkreel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
