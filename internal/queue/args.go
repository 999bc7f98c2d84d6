package queue

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Args is the typed argument set of a job. Only the types in this package
// implement it.
type Args interface {
	Kind() Kind
	Validate() error
	singletonKey() (string, error)
}

// TalkMetadata describes the talk a build renders. Description and Filename
// are optional.
type TalkMetadata struct {
	Title       string `json:"title"`
	Presenter   string `json:"presenter"`
	Description string `json:"description,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// BuildArgs are the arguments of a talk build job. Empty directories and a
// zero framerate fall back to configuration at execution time.
type BuildArgs struct {
	Video     string       `json:"video"`
	Talk      TalkMetadata `json:"talk"`
	StartTC   string       `json:"start_tc"`
	EndTC     string       `json:"end_tc"`
	Framerate int          `json:"framerate,omitempty"`
	OutputDir string       `json:"output_dir,omitempty"`
	TempDir   string       `json:"temp_dir,omitempty"`
	LogDir    string       `json:"log_dir,omitempty"`
}

func (BuildArgs) Kind() Kind { return KindBuild }

func (a BuildArgs) Validate() error {
	switch {
	case strings.TrimSpace(a.Video) == "":
		return fmt.Errorf("%w: build requires a source video", ErrInvalidArgs)
	case strings.TrimSpace(a.Talk.Title) == "":
		return fmt.Errorf("%w: build requires a talk title", ErrInvalidArgs)
	case strings.TrimSpace(a.Talk.Presenter) == "":
		return fmt.Errorf("%w: build requires a presenter", ErrInvalidArgs)
	case strings.TrimSpace(a.StartTC) == "" || strings.TrimSpace(a.EndTC) == "":
		return fmt.Errorf("%w: build requires start and end timecodes", ErrInvalidArgs)
	}
	return nil
}

func (a BuildArgs) singletonKey() (string, error) {
	a.Video = filepath.Clean(a.Video)
	return jsonKey(a)
}

// IngestArgs are the arguments of a camera footage ingest job.
type IngestArgs struct {
	Input     string `json:"input"`
	OutputDir string `json:"output_dir"`
	Framerate int    `json:"framerate,omitempty"`
	LogDir    string `json:"log_dir,omitempty"`
}

func (IngestArgs) Kind() Kind { return KindIngest }

func (a IngestArgs) Validate() error {
	switch {
	case strings.TrimSpace(a.Input) == "":
		return fmt.Errorf("%w: ingest requires an input path", ErrInvalidArgs)
	case strings.TrimSpace(a.OutputDir) == "":
		return fmt.Errorf("%w: ingest requires an output directory", ErrInvalidArgs)
	}
	return nil
}

func (a IngestArgs) singletonKey() (string, error) {
	a.Input = filepath.Clean(a.Input)
	a.OutputDir = filepath.Clean(a.OutputDir)
	return jsonKey(a)
}

// WatchArgs are the arguments of a watch-folder monitor job.
type WatchArgs struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	OutputDir string `json:"output_dir"`
}

func (WatchArgs) Kind() Kind { return KindWatch }

func (a WatchArgs) Validate() error {
	switch {
	case strings.TrimSpace(a.Path) == "":
		return fmt.Errorf("%w: watch requires a folder path", ErrInvalidArgs)
	case strings.TrimSpace(a.OutputDir) == "":
		return fmt.Errorf("%w: watch requires an output directory", ErrInvalidArgs)
	}
	return nil
}

// singletonKey is the absolute watched path alone, so renaming a folder or
// changing its output directory cannot start a second monitor on it.
func (a WatchArgs) singletonKey() (string, error) {
	path, err := filepath.Abs(strings.TrimSpace(a.Path))
	if err != nil {
		return "", fmt.Errorf("resolve watch path: %w", err)
	}
	return filepath.Clean(path), nil
}

// SingletonKey derives the single-instance key of args. Watch jobs are keyed
// `watch:<abs path>`; other kinds by their canonical JSON encoding.
func SingletonKey(args Args) (string, error) {
	if args == nil {
		return "", fmt.Errorf("%w: nil args", ErrInvalidArgs)
	}
	key, err := args.singletonKey()
	if err != nil {
		return "", err
	}
	return string(args.Kind()) + ":" + key, nil
}

func jsonKey(args Args) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode singleton key: %w", err)
	}
	return string(raw), nil
}

func encodeArgs(args Args) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode %s args: %w", args.Kind(), err)
	}
	return string(raw), nil
}

func decodeArgs(kind Kind, raw string) (Args, error) {
	var (
		args Args
		err  error
	)
	switch kind {
	case KindBuild:
		var v BuildArgs
		err = json.Unmarshal([]byte(raw), &v)
		args = v
	case KindIngest:
		var v IngestArgs
		err = json.Unmarshal([]byte(raw), &v)
		args = v
	case KindWatch:
		var v WatchArgs
		err = json.Unmarshal([]byte(raw), &v)
		args = v
	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s args: %w", kind, err)
	}
	return args, nil
}
