//go:build unix

package runner

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd, grace time.Duration) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var once sync.Once
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		pgid := cmd.Process.Pid
		err := unix.Kill(-pgid, unix.SIGTERM)
		once.Do(func() {
			time.AfterFunc(grace, func() {
				_ = unix.Kill(-pgid, unix.SIGKILL)
			})
		})
		return err
	}
	// Bounds Wait when the group ignores SIGTERM and keeps our output pipes open.
	cmd.WaitDelay = grace + time.Second
}
