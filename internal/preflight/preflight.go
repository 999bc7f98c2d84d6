package preflight

import (
	"hackyplayer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Path   string
	Passed bool
	Detail string
}

// CheckDirectories checks every directory the daemon reads or writes.
// Watch folder output directories are only checked when set.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckReadableDirectory("Source directory", cfg.Paths.SourceDir),
		CheckReadableDirectory("Resource directory", cfg.Paths.ResourceDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	for _, folder := range cfg.WatchFolders {
		results = append(results, CheckReadableDirectory("Watch folder "+folder.Name, folder.Path))
		if folder.OutputDir != "" {
			results = append(results, CheckDirectoryAccess("Watch output "+folder.Name, folder.OutputDir))
		}
	}
	return results
}
