package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"hackyplayer/internal/config"
)

// Requirement defines an external dependency hackyplayer relies on.
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

// ToolRequirements lists the external programs the build and ingest pipelines execute.
func ToolRequirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Composes builds and transcodes ingests"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Reads ingest durations"},
		{Name: "ImageMagick", Command: cfg.Tools.Convert, Description: "Renders title and credit cards"},
	}
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

// CheckFiles reports whether each named file exists as a regular file under dir.
func CheckFiles(dir string, names []string) []Status {
	results := make([]Status, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		status := Status{Name: name, Command: path, Description: "Build resource"}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			status.Detail = "file not found"
		case !info.Mode().IsRegular():
			status.Detail = "not a regular file"
		default:
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
