package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hackyplayer/internal/fileutil"
	"hackyplayer/internal/textutil"
)

const jobNameTimeLayout = "20060102-150405"

// Paths are the per-job files a build reads and writes.
type Paths struct {
	JobName       string
	WorkDir       string
	Output        string
	LogDir        string
	BuildLog      string
	LoudnessLog   string
	AssetsLog     string
	TaskLog       string
	TitleCard     string
	PresenterCard string
	LicenceCard   string
}

// JobName returns `<stem>-<YYYYMMDD-HHMMSS>`, or the timestamp alone when stem is empty.
func JobName(stem string, now time.Time) string {
	stamp := now.Format(jobNameTimeLayout)
	stem = textutil.SanitizeFileName(textutil.FoldAccents(stem))
	stem = strings.ReplaceAll(stem, " ", "_")
	if stem == "" {
		return stamp
	}
	return stem + "-" + stamp
}

// WorkDirSuffix returns the suffix every work directory of jobID ends with.
func WorkDirSuffix(jobID string) string {
	return "-" + shortID(jobID)
}

func shortID(jobID string) string {
	id := strings.ReplaceAll(jobID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// DerivePaths computes and prepares the paths of one build. It creates the
// work and log directories, and reserves the output file so a concurrent
// build deriving the same name falls back to the id-suffixed variant.
func DerivePaths(jobID, stem, outputDir, tempDir, logDir string, now time.Time) (Paths, error) {
	if strings.TrimSpace(jobID) == "" {
		return Paths{}, errors.New("derive paths: job id required")
	}
	name := JobName(stem, now)
	short := shortID(jobID)
	work := filepath.Join(tempDir, name+"-"+short)
	jobLogs := filepath.Join(logDir, jobID)

	for _, dir := range []string{work, jobLogs, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	output, err := fileutil.ReserveFile(
		filepath.Join(outputDir, name+".mp4"),
		filepath.Join(outputDir, name+"-"+short+".mp4"),
	)
	if err != nil {
		return Paths{}, err
	}

	return Paths{
		JobName:       name,
		WorkDir:       work,
		Output:        output,
		LogDir:        jobLogs,
		BuildLog:      filepath.Join(jobLogs, "main_build.log"),
		LoudnessLog:   filepath.Join(jobLogs, "loudness_analysis.log"),
		AssetsLog:     filepath.Join(jobLogs, "assets.log"),
		TaskLog:       filepath.Join(jobLogs, name+".log"),
		TitleCard:     filepath.Join(work, "start_title.png"),
		PresenterCard: filepath.Join(work, "start_pres.png"),
		LicenceCard:   filepath.Join(work, "copyright.png"),
	}, nil
}
