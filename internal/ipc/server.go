package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"hackyplayer/internal/api"
	"hackyplayer/internal/daemon"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
)

// ServiceName is the RPC receiver name the client calls into.
const ServiceName = "Hackyplayer"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun hackyplayer stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Build(req BuildRequest, resp *BuildResponse) error {
	id, err := s.daemon.Supervisor().EnqueueBuild(s.ctx, req)
	if err != nil {
		return err
	}
	resp.ID = id
	s.logger.Info("build queued via IPC",
		logging.String(logging.FieldJobID, id),
		logging.String("talk_id", req.TalkID),
		logging.String(logging.FieldEventType, "build_enqueued"))
	return nil
}

func (s *service) Ingest(req IngestRequest, resp *IngestResponse) error {
	id, err := s.daemon.Supervisor().EnqueueIngest(s.ctx, req)
	if err != nil {
		return err
	}
	resp.ID = id
	s.logger.Info("ingest queued via IPC",
		logging.String(logging.FieldJobID, id),
		logging.String("input", req.Input),
		logging.String(logging.FieldEventType, "ingest_enqueued"))
	return nil
}

func (s *service) WatchStart(req WatchRequest, resp *WatchStartResponse) error {
	id, err := s.daemon.Supervisor().StartWatch(s.ctx, strings.TrimSpace(req.Name))
	if errors.Is(err, queue.ErrDuplicateJob) {
		resp.ID = id
		resp.AlreadyRunning = true
		return nil
	}
	if err != nil {
		return err
	}
	resp.ID = id
	s.logger.Info("watch folder started via IPC",
		logging.String("folder", req.Name),
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "watch_started"))
	return nil
}

func (s *service) WatchStop(req WatchRequest, resp *WatchStopResponse) error {
	ids, err := s.daemon.Supervisor().StopWatch(s.ctx, strings.TrimSpace(req.Name))
	resp.IDs = ids
	if err != nil {
		return err
	}
	s.logger.Info("watch folder stopped via IPC",
		logging.String("folder", req.Name),
		logging.Int("revoked", len(ids)),
		logging.String(logging.FieldEventType, "watch_stopped"))
	return nil
}

func (s *service) Watches(_ WatchListRequest, resp *WatchListResponse) error {
	folders, err := s.daemon.Supervisor().WatchFolders(s.ctx)
	if err != nil {
		return err
	}
	resp.Folders = folders
	return nil
}

func (s *service) Tasks(_ TaskListRequest, resp *TaskListResponse) error {
	tasks, err := s.daemon.Supervisor().BuildTasks(s.ctx)
	if err != nil {
		return err
	}
	resp.Tasks = tasks
	return nil
}

func (s *service) Ingests(_ IngestListRequest, resp *IngestListResponse) error {
	ingests, err := s.daemon.Supervisor().IngestTasks(s.ctx)
	if err != nil {
		return err
	}
	resp.Ingests = ingests
	return nil
}

func (s *service) Cancel(req JobRequest, resp *JobResponse) error {
	view, err := s.daemon.Supervisor().Cancel(s.ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return err
	}
	resp.Job = view
	s.logger.Info("job cancel requested via IPC",
		logging.String(logging.FieldJobID, view.ID),
		logging.String("status", view.Status),
		logging.String(logging.FieldEventType, "job_cancel"))
	return nil
}

func (s *service) Describe(req JobRequest, resp *JobResponse) error {
	view, err := s.daemon.Supervisor().Describe(s.ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return err
	}
	resp.Job = view
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	tail, err := s.daemon.Supervisor().TailLog(s.ctx, strings.TrimSpace(req.ID), api.LogQuery{
		File:   req.File,
		Lines:  req.Lines,
		Offset: req.Offset,
		Follow: req.Follow,
		Wait:   time.Duration(req.WaitMillis) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	*resp = tail
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.SchemaVersion = health.SchemaVersion
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalJobs = health.TotalJobs
	resp.Error = health.Error
	return err
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) Maintenance(_ MaintenanceRequest, resp *MaintenanceResponse) error {
	report := s.daemon.RunMaintenance(s.ctx)
	resp.Reclaimed = report.Reclaimed
	resp.Purged = report.Purged
	resp.LogsPruned = report.LogsPruned
	resp.WorkDirsPruned = report.WorkDirsPruned
	s.logger.Info("maintenance run via IPC",
		logging.Int64("reclaimed", report.Reclaimed),
		logging.Int64("purged", report.Purged),
		logging.Int("logs_pruned", report.LogsPruned),
		logging.Int("workdirs_pruned", report.WorkDirsPruned),
		logging.String(logging.FieldEventType, "maintenance_manual"))
	return nil
}
