package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bloops-games/botmanager/internal/database/identity/model"
	"github.com/bloops-games/botmanager/internal/query"
)

type fakeStdin struct {
	mu    sync.Mutex
	lines []string
}

func (s *fakeStdin) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append(s.lines, strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func (s *fakeStdin) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.lines...)
}

type fakeProcess struct {
	stdin   *fakeStdin
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	once   sync.Once
	exited chan struct{}
	killed bool
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{stdin: &fakeStdin{}, exited: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Pid() int          { return 42 }
func (p *fakeProcess) Stdin() io.Writer  { return p.stdin }
func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *fakeProcess) Kill() error {
	p.killed = true
	p.exit()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.exited
	return nil
}

func (p *fakeProcess) exit() {
	p.once.Do(func() {
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) print(s string) {
	_, _ = p.stdoutW.Write([]byte(s))
}

type fakeLauncher struct {
	mu    sync.Mutex
	procs []*fakeProcess
	dirs  []string
	err   error
}

func (l *fakeLauncher) Launch(_ context.Context, dir string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}

	p := newFakeProcess()
	l.procs = append(l.procs, p)
	l.dirs = append(l.dirs, dir)
	return p, nil
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.procs[len(l.procs)-1]
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.procs)
}

type fakeQuery struct {
	mu   sync.Mutex
	info query.ServerInfo
	err  error
}

func (q *fakeQuery) set(info query.ServerInfo, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.info, q.err = info, err
}

func (q *fakeQuery) GetServerInfo(_ context.Context, _ query.Target) (query.ServerInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.info, q.err
}

type fakeIdentities struct {
	mu     sync.Mutex
	stored []model.Identity
	err    error
}

func (f *fakeIdentities) Store(m model.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, m)
	return nil
}

var errLaunch = errors.New("no wine")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
