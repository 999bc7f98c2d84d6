package api

// timeFormat is used for start timestamps in status views.
const timeFormat = "2006-01-02 15:04:05"

// TaskView describes a build job.
type TaskView struct {
	ID        string  `json:"id"`
	TimeStart *string `json:"time_start"`
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	Presenter string  `json:"presenter"`
	InTC      string  `json:"in_tc"`
	OutTC     string  `json:"out_tc"`
	Node      string  `json:"node"`
	State     string  `json:"state"`
	Progress  string  `json:"progress"`
}

// IngestView describes an ingest job.
type IngestView struct {
	ID        string  `json:"id"`
	TimeStart *string `json:"time_start"`
	Input     string  `json:"input"`
	Node      string  `json:"node"`
	State     string  `json:"state"`
	Progress  string  `json:"progress"`
}

// WatchFolderView is a configured watch folder merged with its running
// monitor, if any.
type WatchFolderView struct {
	ID        string  `json:"id,omitempty"`
	TimeStart *string `json:"time_start"`
	Name      string  `json:"name"`
	Folder    string  `json:"folder"`
	OutputDir string  `json:"output_dir"`
	Node      string  `json:"node,omitempty"`
	State     string  `json:"state"`
}

// JobView is the full record of a single job.
type JobView struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	Phase        string  `json:"phase,omitempty"`
	Label        string  `json:"label"`
	Progress     string  `json:"progress"`
	Result       string  `json:"result,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Node         string  `json:"node,omitempty"`
	CreatedAt    string  `json:"created_at"`
	TimeStart    *string `json:"time_start"`
	FinishedAt   *string `json:"finished_at"`
	LogDir       string  `json:"log_dir"`
}

// BuildRequest is the input of EnqueueBuild. Video may be relative to the
// configured source directory. When TalkID is set the talks catalogue
// supplies the output filename and description.
type BuildRequest struct {
	Video     string `json:"video"`
	TalkID    string `json:"talk_id,omitempty"`
	Title     string `json:"title"`
	Presenter string `json:"presenter"`
	StartTC   string `json:"start_tc"`
	EndTC     string `json:"end_tc"`
}

// IngestRequest is the input of EnqueueIngest. OutputDir defaults to the
// configured source directory.
type IngestRequest struct {
	Input     string `json:"input"`
	OutputDir string `json:"output_dir,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DirectoryStatus reports access to one configured directory.
type DirectoryStatus struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// WorkflowStatus summarizes worker pool state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Workers    int            `json:"workers"`
	Busy       []string       `json:"busy"`
	QueueStats map[string]int `json:"queue_stats"`
	LastError  string         `json:"last_error,omitempty"`
}

// HostStatus reports the node the daemon runs on.
type HostStatus struct {
	Hostname    string  `json:"hostname"`
	UptimeSecs  uint64  `json:"uptime_seconds"`
	CPUs        int     `json:"cpus"`
	Load1       float64 `json:"load1"`
	MemoryUsed  float64 `json:"memory_used_percent"`
	DiskFreeOut uint64  `json:"disk_free_output_bytes"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queue_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	LogPath      string             `json:"log_path,omitempty"`
	Host         HostStatus         `json:"host"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Directories  []DirectoryStatus  `json:"directories"`
}
