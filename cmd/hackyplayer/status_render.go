package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"hackyplayer/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func systemLines(status *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 6)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running", colorize))
	}
	workers := fmt.Sprintf("%d configured, %d busy", status.Workflow.Workers, len(status.Workflow.Busy))
	lines = append(lines, renderStatusLine("Workers", statusInfo, workers, colorize))
	if msg := strings.TrimSpace(status.Workflow.LastError); msg != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, msg, colorize))
	}
	if host := status.Host; host.Hostname != "" {
		uptime := (time.Duration(host.UptimeSecs) * time.Second).String()
		lines = append(lines,
			renderStatusLine("Host", statusInfo, fmt.Sprintf("%s, %d CPUs, up %s", host.Hostname, host.CPUs, uptime), colorize),
			renderStatusLine("Load", statusInfo, fmt.Sprintf("%.2f (memory %.0f%% used)", host.Load1, host.MemoryUsed), colorize),
			renderStatusLine("Output disk", statusInfo, humanize.Bytes(host.DiskFreeOut)+" free", colorize),
		)
	}
	if status.QueueDBPath != "" {
		lines = append(lines, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+2)
	var missing []string
	required := 0
	for _, dep := range deps {
		if !dep.Available {
			missing = append(missing, dep.Name)
			if !dep.Optional {
				required++
			}
		}
	}
	switch {
	case required > 0:
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d required missing", required), colorize))
	case len(missing) > 0:
		lines = append(lines, renderStatusLine("Summary", statusWarn, fmt.Sprintf("%d optional missing", len(missing)), colorize))
	default:
		lines = append(lines, renderStatusLine("Summary", statusOK, "All available", colorize))
	}

	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func directoryLines(dirs []ipc.DirectoryStatus, colorize bool) []string {
	lines := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		kind := statusOK
		if !dir.OK {
			kind = statusError
		}
		detail := dir.Detail
		if dir.Path != "" {
			detail = fmt.Sprintf("%s (%s)", dir.Path, dir.Detail)
		}
		lines = append(lines, renderStatusLine(dir.Name, kind, detail, colorize))
	}
	return lines
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}
