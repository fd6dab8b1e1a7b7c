package bot

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr puts the child in its own process group so wine helpers die with
// it. Pdeathsig stops the child if the orchestrator dies unexpectedly.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}

func killProcess(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}

	return err
}
