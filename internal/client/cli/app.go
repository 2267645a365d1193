package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/client/config"
	"github.com/dmitrijs2005/lootshop/internal/client/services"
	"github.com/dmitrijs2005/lootshop/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer
	logger      logging.Logger

	// pendingEmail is the address waiting for an OTP, offered as the
	// default by verify and resend.
	pendingEmail string

	mu   sync.RWMutex
	mode Mode
}

func NewApp(c *config.Config, as services.AuthService, in io.Reader, out io.Writer, l logging.Logger) *App {
	return &App{
		config:      c,
		authService: as,
		reader:      bufio.NewReader(in),
		out:         out,
		logger:      l.With("module", "cli"),
	}
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "connectivity changed", "mode", mode)
	}
}

// checkOnline pings the server once and records the result.
func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.authService.IsAuthenticated(ctx)
}

func (a *App) status(ctx context.Context) string {
	s := string(a.Mode())
	if d, err := a.authService.Session(ctx); err == nil {
		name := d.Username
		if name == "" {
			name = d.Email
		}
		s = name + " " + s
	}
	if s == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", s)
}

// Run blocks until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to lootshop (type 'help' for commands)")

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.status, a.reader, a.out)
}
