package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable, writable and traversable by the current user.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Path: path, Detail: "does not exist"}
		}
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("stat: %v", err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Path: path, Detail: "is not a directory"}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("insufficient permissions: %v", err)}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: "read/write ok"}
}

// CheckReadableDirectory verifies that the directory exists and can be
// listed. Source footage and watch folders only need read access.
func CheckReadableDirectory(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Path: path, Detail: "does not exist"}
		}
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("stat: %v", err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Path: path, Detail: "is not a directory"}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Path: path, Detail: fmt.Sprintf("insufficient permissions: %v", err)}
	}
	return Result{Name: name, Path: path, Passed: true, Detail: "read ok"}
}
