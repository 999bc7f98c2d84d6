package api

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"hackyplayer/internal/config"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
)

// WatchFolders lists every configured folder, merged with its live monitor job.
func (s *Supervisor) WatchFolders(ctx context.Context) ([]WatchFolderView, error) {
	jobs, err := s.live(ctx, queue.KindWatch)
	if err != nil {
		return nil, err
	}
	views := make([]WatchFolderView, 0, len(s.cfg.WatchFolders))
	for _, folder := range s.cfg.WatchFolders {
		view := WatchFolderView{
			Name:      folder.Name,
			Folder:    folder.Path,
			OutputDir: s.watchOutput(folder),
			State:     "stopped",
		}
		if job := matchWatch(jobs, folder.Path); job != nil {
			view.ID = job.ID
			view.TimeStart = formatTime(job.StartedAt)
			view.Node = job.Node
			view.State = jobState(job)
		}
		views = append(views, view)
	}
	return views, nil
}

// StartWatch queues the monitor for the named folder. At most one monitor per
// folder is live; a second start returns an error wrapping queue.ErrDuplicateJob.
func (s *Supervisor) StartWatch(ctx context.Context, name string) (string, error) {
	folder, ok := s.cfg.WatchFolder(name)
	if !ok {
		return "", unknownFolder(name)
	}
	job, err := s.store.Enqueue(ctx, queue.WatchArgs{
		Name:      folder.Name,
		Path:      folder.Path,
		OutputDir: s.watchOutput(folder),
	}, queue.WithSingleton())
	if err != nil {
		var dup *queue.DuplicateJobError
		if errors.As(err, &dup) {
			return dup.ExistingID, fmt.Errorf("watch folder %q already running as %s: %w", folder.Name, dup.ExistingID, err)
		}
		return "", err
	}
	return job.ID, nil
}

// StopWatch revokes every live monitor of the named folder and returns their ids.
func (s *Supervisor) StopWatch(ctx context.Context, name string) ([]string, error) {
	folder, ok := s.cfg.WatchFolder(name)
	if !ok {
		return nil, unknownFolder(name)
	}
	jobs, err := s.live(ctx, queue.KindWatch)
	if err != nil {
		return nil, err
	}
	var stopped []string
	target := filepath.Clean(folder.Path)
	for _, job := range jobs {
		args, ok := job.Watch()
		if !ok || filepath.Clean(args.Path) != target {
			continue
		}
		if _, err := s.store.Revoke(ctx, job.ID); err != nil {
			return stopped, fmt.Errorf("revoke watch %s: %w", job.ID, err)
		}
		stopped = append(stopped, job.ID)
	}
	return stopped, nil
}

func (s *Supervisor) watchOutput(folder config.WatchFolder) string {
	if folder.OutputDir != "" {
		return folder.OutputDir
	}
	return s.cfg.Paths.SourceDir
}

func matchWatch(jobs []*queue.Job, path string) *queue.Job {
	target := filepath.Clean(path)
	for _, job := range jobs {
		if args, ok := job.Watch(); ok && filepath.Clean(args.Path) == target {
			return job
		}
	}
	return nil
}

func unknownFolder(name string) error {
	return services.Wrap(services.ErrNotFound, "api", "watch", fmt.Sprintf("no watch folder named %q", name), nil)
}
