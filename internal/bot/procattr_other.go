//go:build !linux

package bot

import (
	"os"
	"syscall"
)

// sysProcAttr puts the child in its own process group. Pdeathsig is not
// available on non-Linux platforms.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func killProcess(p *os.Process) error {
	return p.Kill()
}
