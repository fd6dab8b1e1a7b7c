package fleet

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/query"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// autoProcess answers like the bot executable: a prompt after launch and a
// confirmation plus prompt after every command.
type autoProcess struct {
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	mu       sync.Mutex
	commands []string
	killed   bool

	once   sync.Once
	exited chan struct{}
}

func newAutoProcess() *autoProcess {
	p := &autoProcess{exited: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	go p.print("bots v1\n> ")
	return p
}

func (p *autoProcess) print(s string) {
	_, _ = p.stdoutW.Write([]byte(s))
}

func (p *autoProcess) Write(b []byte) (int, error) {
	cmd := strings.TrimSpace(string(b))

	p.mu.Lock()
	p.commands = append(p.commands, cmd)
	p.mu.Unlock()

	switch cmd {
	case "start":
		go p.print("started successfully\n> ")
	case "stop":
		go p.print("stopped successfully\n> ")
	}

	return len(b), nil
}

func (p *autoProcess) Pid() int          { return 7 }
func (p *autoProcess) Stdin() io.Writer  { return p }
func (p *autoProcess) Stdout() io.Reader { return p.stdoutR }
func (p *autoProcess) Stderr() io.Reader { return p.stderrR }

func (p *autoProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()

	p.once.Do(func() {
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		close(p.exited)
	})
	return nil
}

func (p *autoProcess) Wait() error {
	<-p.exited
	return nil
}

func (p *autoProcess) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.commands...)
}

func (p *autoProcess) isKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.killed
}

type autoLauncher struct {
	mu    sync.Mutex
	procs []*autoProcess
}

func (l *autoLauncher) Launch(_ context.Context, _ string) (bot.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := newAutoProcess()
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *autoLauncher) all() []*autoProcess {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*autoProcess(nil), l.procs...)
}

// liveQuery reports every bot in game as a player, teams alternate by slot.
type liveQuery struct {
	mu         sync.Mutex
	bots       []*bot.Bot
	maxPlayers int
	variant    string
	err        error
	// replaces the live view when set
	override *query.ServerInfo

	entered chan struct{}
	block   chan struct{}
}

func (q *liveQuery) GetServerInfo(_ context.Context, _ query.Target) (query.ServerInfo, error) {
	q.mu.Lock()
	entered, block := q.entered, q.block
	q.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-block
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return query.ServerInfo{}, q.err
	}
	if q.override != nil {
		return *q.override, nil
	}

	info := query.ServerInfo{MaxPlayers: q.maxPlayers, GameVariant: q.variant}
	for _, b := range q.bots {
		if b.IsBotRunning() {
			info.Players = append(info.Players, query.Player{Name: b.Nickname(), Team: b.Config().Slot%2 + 1})
		}
	}
	info.NumPlayers = len(info.Players)

	return info, nil
}

func (q *liveQuery) set(fn func(q *liveQuery)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	fn(q)
}

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

func testFleetConfig() config.Fleet {
	return config.Fleet{
		JoinTimeout:             300 * time.Second,
		OnServerTimeout:         180 * time.Second,
		StatusUpdateTimeout:     30 * time.Second,
		SlotTimeout:             60 * time.Second,
		ReservedSlotTimeout:     240 * time.Second,
		OverpopulateFactor:      2,
		AutobalanceMaxDuration:  240 * time.Second,
		LaunchSpacing:           5 * time.Millisecond,
		StopWaitAttempts:        1000,
		PollInterval:            time.Millisecond,
		StatusInterval:          time.Hour,
		BotMaintenanceSchedule:  "0 */2 * * * *",
		SlotMaintenanceSchedule: "10,30,50 * * * * *",
	}
}

type harness struct {
	server   *Server
	query    *liveQuery
	launcher *autoLauncher
	clock    *clock
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T, sc ServerConfig, nbots int) *harness {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core).Sugar())

	h := &harness{
		query:    &liveQuery{maxPlayers: 20},
		launcher: &autoLauncher{},
		clock:    newClock(),
		logs:     logs,
	}

	runningDir := t.TempDir()
	bots := make([]*bot.Bot, 0, nbots)
	for i := 0; i < nbots; i++ {
		c := bot.NewConfig("bot"+string(rune('a'+i)), "secret", i, bot.Server{
			Name: sc.Name, Address: sc.Address, Port: sc.Port, Mod: sc.Mod,
		}, runningDir)
		require.NoError(t, os.MkdirAll(c.Dir, 0755))
		bots = append(bots, bot.New(ctx, c, h.launcher, h.query, nil, bot.Options{PollInterval: time.Millisecond, Now: h.clock.Now}))
	}
	h.query.bots = bots

	h.server = NewServer(ctx, sc, bots, h.query, nil, testFleetConfig())
	h.server.now = h.clock.Now
	t.Cleanup(func() {
		for _, b := range bots {
			_ = b.Kill()
		}
		h.server.Close()
	})

	return h
}

func (h *harness) running() int {
	running := 0
	for _, b := range h.server.Bots() {
		if b.IsBotRunning() {
			running++
		}
	}

	return running
}

// launch runs maintenance passes until n bots are in game.
func (h *harness) launch(t *testing.T, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		h.server.MaintainBots(context.Background())
		return h.running() == n
	}, 2*time.Second, 5*time.Millisecond)
}

// info lists the bots of the given slots on the teams given by team(slot).
func (h *harness) info(maxPlayers int, team func(slot int) int, slots ...int) query.ServerInfo {
	info := query.ServerInfo{MaxPlayers: maxPlayers}
	for _, slot := range slots {
		b := h.server.Bots()[slot]
		info.Players = append(info.Players, query.Player{Name: b.Nickname(), Team: team(slot)})
	}
	info.NumPlayers = len(info.Players)

	return info
}

func (h *harness) counts() (enabled, onServer int) {
	for _, b := range h.server.Bots() {
		st := b.Status()
		if st.Enabled {
			enabled++
		}
		if st.OnServer {
			onServer++
		}
	}

	return enabled, onServer
}
