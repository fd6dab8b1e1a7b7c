// Package bot supervises one bot executable: its process, its command prompt
// and its presence on the game server.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bloops-games/botmanager/internal/database/identity/model"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/query"
	"github.com/bloops-games/botmanager/internal/util"
	"go.uber.org/zap"
)

var ErrCLIBusy = errors.New("cli is not ready")

type Command string

const (
	CommandStart Command = "start"
	CommandStop  Command = "stop"
)

// IdentityStore persists rotated identities.
type IdentityStore interface {
	Store(m model.Identity) error
}

type Options struct {
	// Random delay before each status query, spreads load over the cache TTL.
	StatusJitterMin time.Duration
	StatusJitterMax time.Duration

	// Interval of the stop and relaunch polling loops.
	PollInterval time.Duration

	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

type Bot struct {
	mu     sync.Mutex
	config Config
	status status
	proc   Process
	// incremented on every spawn and kill, events of older processes are dropped
	gen uint64

	launcher   Launcher
	query      query.Client
	identities IdentityStore
	opts       Options
	logger     *zap.SugaredLogger
}

func New(ctx context.Context, config Config, launcher Launcher, client query.Client, identities IdentityStore, opts Options) *Bot {
	return &Bot{
		config:     config,
		status:     newStatus(),
		launcher:   launcher,
		query:      client,
		identities: identities,
		opts:       opts.withDefaults(),
		logger: logging.FromContext(ctx).Named("bot").With(
			"server", config.Server.Name,
			"slot", config.Slot,
		),
	}
}

func (b *Bot) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.config
}

func (b *Bot) Nickname() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.config.Nickname
}

func (b *Bot) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status.snapshot()
}

func (b *Bot) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status.enabled
}

func (b *Bot) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status.enabled = enabled
}

func (b *Bot) IsLaunched() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status.processRunning()
}

func (b *Bot) IsBotRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status.botRunning()
}

// Launch spawns the bot process. Disabled or already launched bots are left alone.
func (b *Bot) Launch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	logger := b.logger.With("nickname", b.config.Nickname)
	if !b.status.enabled {
		logger.Warnf("currently disabled, will not launch")
		return nil
	}

	if b.status.processRunning() {
		logger.Debugf("already launched")
		return nil
	}

	proc, err := b.launcher.Launch(ctx, b.config.Dir)
	if err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	b.gen++
	b.proc = proc
	b.status.spawned(b.opts.Now())
	logger.Debugf("process launched successfully, pid %d", proc.Pid())

	gen := b.gen
	go b.readOutput(gen, proc.Stdout())
	go b.readErrors(gen, proc.Stderr())
	go b.waitExit(gen, proc)

	return nil
}

func (b *Bot) readOutput(gen uint64, r io.Reader) {
	var parser Parser
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.handleOutput(gen, parser.Feed(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func (b *Bot) handleOutput(gen uint64, lines []Line) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		return
	}

	logger := b.logger.With("nickname", b.config.Nickname)
	for _, line := range lines {
		if line.Event != EventRejected && line.Text != "" {
			logger.Debugf("stdout: %s", line.Text)
		}

		if !b.status.apply(line.Event, b.opts.Now()) {
			continue
		}

		switch line.Event {
		case EventReady:
			logger.Debugf("cli is ready")
		case EventStarted:
			logger.Infof("started successfully")
		case EventStopped:
			logger.Infof("stopped successfully")
		}
	}
}

func (b *Bot) readErrors(gen uint64, r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.mu.Lock()
			if gen == b.gen {
				b.logger.With("nickname", b.config.Nickname).Errorf("stderr: %s", buf[:n])
			}
			b.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (b *Bot) waitExit(gen uint64, proc Process) {
	err := proc.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		return
	}

	b.logger.With("nickname", b.config.Nickname).Debugf("process exited: %v", err)
	b.status.exited()
	b.proc = nil
}

// SendCommand writes a command line to the process. It returns false without
// sending when there is no process or a previous command is still in flight.
func (b *Bot) SendCommand(cmd Command) bool {
	b.mu.Lock()
	logger := b.logger.With("nickname", b.config.Nickname)
	if b.proc == nil || !b.status.processRunning() {
		b.mu.Unlock()
		logger.Warnf("process is not running, rejecting command %s", cmd)
		return false
	}

	if !b.status.cliReady {
		b.mu.Unlock()
		logger.Warnf("cli is not ready, rejecting command %s", cmd)
		return false
	}

	logger.Debugf("sending command to process via stdin: %s", cmd)
	b.status.cliReady = false
	if cmd == CommandStop && b.status.phase == StateClientUp {
		b.status.phase = StateStopping
	}
	stdin := b.proc.Stdin()
	b.mu.Unlock()

	if _, err := io.WriteString(stdin, string(cmd)+"\n"); err != nil {
		logger.Errorf("failed to write command %s: %v", cmd, err)
		return false
	}

	return true
}

func (b *Bot) Start() bool {
	return b.SendCommand(CommandStart)
}

// Stop asks the bot to leave the game. A bot that is not in game is already stopped.
func (b *Bot) Stop() bool {
	if !b.IsBotRunning() {
		return true
	}

	return b.SendCommand(CommandStop)
}

// WaitForStop polls until the bot left the game or maxAttempts polls passed.
// It never kills the process.
func (b *Bot) WaitForStop(ctx context.Context, maxAttempts int) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if !b.IsBotRunning() {
			return true
		}

		if err := util.Sleep(ctx, b.opts.PollInterval); err != nil {
			return !b.IsBotRunning()
		}
	}

	if !b.IsBotRunning() {
		return true
	}

	b.logger.With("nickname", b.Nickname()).Warnf("did not stop after %d attempts", maxAttempts)
	return false
}

// Kill terminates the process and resets the status. It succeeds when there
// is nothing to kill.
func (b *Bot) Kill() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	proc := b.proc
	b.proc = nil
	b.gen++
	b.status.exited()

	if proc == nil {
		return nil
	}

	if err := proc.Kill(); err != nil {
		b.logger.With("nickname", b.config.Nickname).Errorf("failed to kill process: %v", err)
		return fmt.Errorf("kill: %w", err)
	}

	return nil
}

// Relaunch kills the process, waits for it to be gone and launches it again.
func (b *Bot) Relaunch(ctx context.Context) error {
	if err := b.Kill(); err != nil {
		return err
	}

	for b.IsLaunched() {
		if err := util.Sleep(ctx, b.opts.PollInterval); err != nil {
			return fmt.Errorf("relaunch: %w", err)
		}
	}

	return b.Launch(ctx)
}

// Restart stops the bot, waits until it left the game and starts it again.
func (b *Bot) Restart(ctx context.Context, maxAttempts int) bool {
	if !b.Stop() {
		return false
	}

	if !b.WaitForStop(ctx, maxAttempts) {
		return false
	}

	// the prompt returns after the stop confirmation
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if b.Status().CLIReady {
			return b.Start()
		}

		if err := util.Sleep(ctx, b.opts.PollInterval); err != nil {
			return false
		}
	}

	return b.Start()
}

// RotateIdentifiers picks a new nickname and/or access key, rewrites the
// credentials and persists the new identity.
func (b *Bot) RotateIdentifiers(nickname, cdkey bool) error {
	b.mu.Lock()
	previous := b.config.Nickname
	if nickname {
		b.config.Nickname = NextNickname(b.config.Basename, b.config.Nickname)
	}
	if cdkey {
		b.config.CDKey = NewCDKey()
	}
	config := b.config
	b.mu.Unlock()

	b.logger.Infof("rotated identifiers %s -> %s", previous, config.Nickname)
	if err := config.WriteCredentials(); err != nil {
		return fmt.Errorf("rotate identifiers: %w", err)
	}

	if b.identities == nil {
		return nil
	}

	if err := b.identities.Store(model.Identity{
		Server:    config.Server.Name,
		Slot:      config.Slot,
		Nickname:  config.Nickname,
		CDKey:     config.CDKey,
		RotatedAt: b.opts.Now(),
	}); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}

	return nil
}

// UpdateMod switches the configured mod and rewrites the credentials. It
// reports whether the mod changed.
func (b *Bot) UpdateMod(mod string) (bool, error) {
	b.mu.Lock()
	if b.config.Server.Mod == mod {
		b.mu.Unlock()
		return false, nil
	}
	b.config.Server.Mod = mod
	config := b.config
	b.mu.Unlock()

	if err := config.WriteCredentials(); err != nil {
		return true, fmt.Errorf("update mod: %w", err)
	}

	return true, nil
}

// UpdateStatus checks whether the bot is on the server. On failure the
// previous status is kept and the next call retries.
func (b *Bot) UpdateStatus(ctx context.Context) error {
	if err := util.Sleep(ctx, util.Jitter(b.opts.StatusJitterMin, b.opts.StatusJitterMax)); err != nil {
		return err
	}

	config := b.Config()
	info, err := b.query.GetServerInfo(ctx, query.Target{
		Address:   config.Server.Address,
		Port:      config.Server.Port,
		QueryPort: config.Server.QueryPort,
	})
	if err != nil {
		b.logger.With("nickname", config.Nickname).Errorf("failed to determine whether bot is on server: %v", err)
		return fmt.Errorf("update status: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// the nickname may have rotated while querying
	player, found := info.FindPlayer(b.config.Nickname)
	now := b.opts.Now()
	b.status.onServer = found
	b.status.team = player.Team
	b.status.onServerLastCheckedAt = now
	if found {
		b.status.lastSeenOnServerAt = now
	}

	return nil
}

// RunStatusLoop refreshes the status every interval until ctx is done.
func (b *Bot) RunStatusLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = b.UpdateStatus(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
