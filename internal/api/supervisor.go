package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hackyplayer/internal/config"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
	"hackyplayer/internal/timecode"
)

// JobStore abstracts the queue operations the supervisor needs.
type JobStore interface {
	Enqueue(ctx context.Context, args queue.Args, opts ...queue.EnqueueOption) (*queue.Job, error)
	Get(ctx context.Context, id string) (*queue.Job, error)
	Active(ctx context.Context, kinds ...queue.Kind) ([]*queue.Job, error)
	Scheduled(ctx context.Context, kinds ...queue.Kind) ([]*queue.Job, error)
	Revoke(ctx context.Context, id string) (*queue.Job, error)
}

// Supervisor exposes job status and control operations.
type Supervisor struct {
	cfg     *config.Config
	store   JobStore
	catalog *Catalog
}

// NewSupervisor constructs a supervisor. A nil catalog disables talk lookup.
func NewSupervisor(cfg *config.Config, store JobStore, catalog *Catalog) *Supervisor {
	return &Supervisor{cfg: cfg, store: store, catalog: catalog}
}

// BuildTasks lists running builds followed by scheduled ones.
func (s *Supervisor) BuildTasks(ctx context.Context) ([]TaskView, error) {
	jobs, err := s.live(ctx, queue.KindBuild)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromBuildJob(job))
	}
	return views, nil
}

// IngestTasks lists running ingests followed by scheduled ones.
func (s *Supervisor) IngestTasks(ctx context.Context) ([]IngestView, error) {
	jobs, err := s.live(ctx, queue.KindIngest)
	if err != nil {
		return nil, err
	}
	views := make([]IngestView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromIngestJob(job))
	}
	return views, nil
}

func (s *Supervisor) live(ctx context.Context, kind queue.Kind) ([]*queue.Job, error) {
	active, err := s.store.Active(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list active %s jobs: %w", kind, err)
	}
	scheduled, err := s.store.Scheduled(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list scheduled %s jobs: %w", kind, err)
	}
	return append(active, scheduled...), nil
}

// Describe returns the full record of one job.
func (s *Supervisor) Describe(ctx context.Context, id string) (JobView, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, s.jobLogDir(job)), nil
}

// Cancel revokes a job. Pending jobs are revoked at once; running jobs are
// stopped by their worker shortly after.
func (s *Supervisor) Cancel(ctx context.Context, id string) (JobView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return JobView{}, services.Wrap(services.ErrValidation, "api", "cancel", "job id is required", nil)
	}
	job, err := s.store.Revoke(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, s.jobLogDir(job)), nil
}

// EnqueueBuild validates req and queues a build job, returning its id.
func (s *Supervisor) EnqueueBuild(ctx context.Context, req BuildRequest) (string, error) {
	framerate := s.cfg.Build.Framerate
	start, err := timecode.Split(strings.TrimSpace(req.StartTC), framerate)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "build", "invalid start timecode", err)
	}
	end, err := timecode.Split(strings.TrimSpace(req.EndTC), framerate)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "build", "invalid end timecode", err)
	}
	if end.Offset(framerate) <= start.Offset(framerate) {
		return "", services.Wrap(services.ErrValidation, "api", "build",
			fmt.Sprintf("end %s must be after start %s", end, start), nil)
	}

	video, err := s.resolveSource(req.Video)
	if err != nil {
		return "", err
	}
	talk, err := s.catalog.Metadata(req.TalkID, req.Title, req.Presenter)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "build", "invalid talk id", err)
	}

	args := queue.BuildArgs{
		Video:     video,
		Talk:      talk,
		StartTC:   start.String(),
		EndTC:     end.String(),
		Framerate: framerate,
		OutputDir: s.cfg.Paths.OutputDir,
		TempDir:   s.cfg.Paths.TempDir,
		LogDir:    s.cfg.Paths.LogDir,
	}
	if err := args.Validate(); err != nil {
		return "", services.Wrap(services.ErrValidation, "api", "build", "incomplete build request", err)
	}
	job, err := s.store.Enqueue(ctx, args)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

// EnqueueIngest queues an ingest of req.Input, returning the job id.
func (s *Supervisor) EnqueueIngest(ctx context.Context, req IngestRequest) (string, error) {
	input, err := s.resolveSource(req.Input)
	if err != nil {
		return "", err
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = s.cfg.Paths.SourceDir
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	job, err := s.store.Enqueue(ctx, queue.IngestArgs{
		Input:     input,
		OutputDir: outputDir,
		Framerate: s.cfg.Build.Framerate,
		LogDir:    s.cfg.Paths.LogDir,
	})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

// resolveSource makes path absolute against the source directory and checks
// it names a regular file.
func (s *Supervisor) resolveSource(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "api", "resolve", "a source file is required", nil)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.Paths.SourceDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "api", "resolve", "source file "+path, err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrValidation, "api", "resolve", path+" is not a regular file", nil)
	}
	return path, nil
}

func (s *Supervisor) jobLogDir(job *queue.Job) string {
	base := s.cfg.Paths.LogDir
	switch args := job.Args.(type) {
	case queue.BuildArgs:
		if args.LogDir != "" {
			base = args.LogDir
		}
	case queue.IngestArgs:
		if args.LogDir != "" {
			base = args.LogDir
		}
	}
	return filepath.Join(base, job.ID)
}
