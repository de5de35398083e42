package scriptdeck

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/scriptdeck/internal/config"
	"github.com/aretw0/scriptdeck/internal/discovery"
	"github.com/aretw0/scriptdeck/internal/logging"
	"github.com/aretw0/scriptdeck/internal/metrics"
	"github.com/aretw0/scriptdeck/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/scriptdeck/pkg/adapters/redis"
	"github.com/aretw0/scriptdeck/pkg/adapters/shell"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/gate"
	"github.com/aretw0/scriptdeck/pkg/infer"
	"github.com/aretw0/scriptdeck/pkg/lifecycle"
	"github.com/aretw0/scriptdeck/pkg/pool"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Version is the current scriptdeck release.
const Version = "0.4.0"

// App is the high-level entry point: a fully wired panel backend built from
// a configuration file.
type App struct {
	Config    *config.Config
	Gate      *gate.Gate
	Pool      *pool.Pool
	Lifecycle *lifecycle.Manager
	Scanner   *discovery.Scanner
	History   ports.HistoryStore
	Metrics   *metrics.Metrics

	logger    *slog.Logger
	confirmer ports.Confirmer
	factory   ports.SurfaceFactory
	roots     []string
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithLogger configures the structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithConfirmer sets the confirmation strategy. Without one, suspicious
// commands are declined.
func WithConfirmer(c ports.Confirmer) Option {
	return func(a *App) {
		a.confirmer = c
	}
}

// WithSurfaceFactory injects a custom execution-surface factory, bypassing
// the default shell adapter.
func WithSurfaceFactory(f ports.SurfaceFactory) Option {
	return func(a *App) {
		a.factory = f
	}
}

// WithScriptRoots overrides the configured scan roots.
func WithScriptRoots(roots []string) Option {
	return func(a *App) {
		a.roots = roots
	}
}

// New loads the configuration at cfgPath (missing file means defaults) and
// wires the gate, pool, inferencer, and lifecycle together.
func New(cfgPath string, opts ...Option) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	reuse, err := domain.ParseReusePolicy(cfg.ReusePolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	roots := a.roots
	if len(roots) == 0 {
		roots = cfg.ScriptRoots
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	a.Scanner = discovery.New(roots,
		discovery.WithIgnoreDirs(cfg.IgnoreDirectories),
		discovery.WithExtensions(cfg.Extensions),
		discovery.WithLogger(a.logger),
	)

	a.Gate = gate.New(cfg.Whitelist, cfg.Blacklist, gate.WithLogger(a.logger))
	a.Metrics = metrics.New()

	if a.factory == nil {
		a.factory = shell.NewFactory(shell.WithShell(cfg.Shell))
	}
	a.Pool = pool.New(a.factory,
		pool.WithCeiling(cfg.MaxTerminals),
		pool.WithWarnFunc(func(total, ceiling int) {
			a.Metrics.PoolOverflow(total, ceiling)
			a.logger.Warn("terminal pool over ceiling; consider closing settled sessions",
				"total", total, "ceiling", ceiling)
		}),
		pool.WithLogger(a.logger),
	)

	inferencer := infer.New(
		infer.WithPollInterval(cfg.Timings.PollInterval),
		infer.WithQuietDelay(cfg.Timings.QuietDelay),
		infer.WithHardCeiling(cfg.Timings.HardCeiling),
		infer.WithLogger(a.logger),
	)

	a.History, err = buildHistory(cfg.History)
	if err != nil {
		return nil, err
	}

	a.Lifecycle = lifecycle.New(a.Gate, a.Pool, inferencer,
		lifecycle.WithLogger(a.logger),
		lifecycle.WithConfirmer(a.confirmer),
		lifecycle.WithHistory(a.History),
		lifecycle.WithReusePolicy(reuse),
		lifecycle.WithGracePeriod(cfg.Timings.GracePeriod),
		lifecycle.WithDefaultWorkdir(cfg.DefaultWorkingDirectory),
		lifecycle.WithKeepSessionOpen(cfg.KeepSessionOpen),
		lifecycle.WithConfirmBeforeExecute(cfg.ConfirmBeforeExecute),
	)
	a.Lifecycle.Subscribe(a.Metrics.Observe)

	return a, nil
}

// buildHistory selects the run-history backend.
func buildHistory(cfg config.HistoryConfig) (ports.HistoryStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.NewHistory(0), nil
	case "redis":
		if cfg.Address == "" {
			return nil, fmt.Errorf("invalid config: redis history requires an address")
		}
		return redisAdapter.New(cfg.Address, cfg.Password, cfg.DB), nil
	default:
		return nil, fmt.Errorf("invalid config: unknown history backend %q", cfg.Backend)
	}
}

// Close shuts the lifecycle down and force-closes every pooled session.
func (a *App) Close() {
	a.Lifecycle.Close()
	a.Pool.CloseAll()
}
