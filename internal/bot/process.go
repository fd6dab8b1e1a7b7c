package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

var ErrProcessNotRunning = errors.New("process not running")

// Process is a running bot executable.
type Process interface {
	Pid() int
	Stdin() io.Writer
	Stdout() io.Reader
	Stderr() io.Reader
	// Kill terminates the process. Killing an exited process is not an error.
	Kill() error
	// Wait blocks until the process exits.
	Wait() error
}

// Launcher spawns bot executables in a working directory.
type Launcher interface {
	Launch(ctx context.Context, dir string) (Process, error)
}

var _ Launcher = (*ExecLauncher)(nil)

// ExecLauncher runs a command, by default "wine bots.exe", in its own process group.
type ExecLauncher struct {
	Command string
	Args    []string
}

func NewExecLauncher(command string, args ...string) *ExecLauncher {
	return &ExecLauncher{Command: command, Args: args}
}

func (l *ExecLauncher) Launch(_ context.Context, dir string) (Process, error) {
	// the process outlives the launching context
	cmd := exec.Command(l.Command, l.Args...)
	cmd.Dir = dir
	cmd.SysProcAttr = sysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	// os pipes keep Wait independent of the output readers, wine helpers may
	// hold the write ends open after the bot exits
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if err != nil {
		_ = stdoutR.Close()
		_ = stderrR.Close()
		return nil, fmt.Errorf("start %s: %w", l.Command, err)
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdoutR, stderr: stderrR}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File
}

func (p *execProcess) Pid() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdin() io.Writer  { return p.stdin }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Kill() error {
	if err := killProcess(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %d: %w", p.cmd.Process.Pid, err)
	}

	return nil
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	_ = p.stdout.Close()
	_ = p.stderr.Close()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// a non-zero exit is a normal end of the bot process
		return nil
	}

	return err
}
