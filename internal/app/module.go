package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tgrandin/locachat/internal/api"
	"github.com/tgrandin/locachat/internal/bus"
	"github.com/tgrandin/locachat/internal/chat"
	"github.com/tgrandin/locachat/internal/config"
	"github.com/tgrandin/locachat/internal/connectivity"
	"github.com/tgrandin/locachat/internal/lock"
	"github.com/tgrandin/locachat/internal/logging"
	"github.com/tgrandin/locachat/internal/profile"
	"github.com/tgrandin/locachat/internal/status"
	"github.com/tgrandin/locachat/internal/store"
	"github.com/tgrandin/locachat/internal/tui"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("locachat",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideTracker,
			provideLock,
			provideDrafts,
			provideRemote,
			provideStore,
			provideFailedQueue,
			provideMonitor,
			provideProber,
			providePipeline,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideTracker(b *bus.Bus) *status.Tracker {
	return status.NewTracker(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideDrafts(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DraftsDBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("drafts store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRemote(cfg *config.Config, logger *zap.Logger) chat.Remote {
	return api.NewClient(cfg.BaseURL, cfg.CookieName, cfg.CookieValue, nil, logger)
}

func provideStore(remote chat.Remote, b *bus.Bus, logger *zap.Logger) *chat.Store {
	return chat.NewStore(remote, b, logger)
}

func provideFailedQueue(db *store.DB, logger *zap.Logger) (*chat.FailedQueue, error) {
	q := chat.NewFailedQueue(db, logger)
	if err := q.Rehydrate(); err != nil {
		return nil, err
	}
	return q, nil
}

func provideMonitor(b *bus.Bus, logger *zap.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(true, b, logger)
}

func provideProber(cfg *config.Config, monitor *connectivity.Monitor, logger *zap.Logger) *connectivity.Prober {
	return connectivity.NewProber(monitor, cfg.BaseURL, cfg.ProbeInterval(), logger)
}

func providePipeline(remote chat.Remote, st *chat.Store, failed *chat.FailedQueue, monitor *connectivity.Monitor, tracker *status.Tracker, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *chat.Pipeline {
	return chat.NewPipeline(remote, st, failed, monitor, tracker, b, logger, cfg.UserID, cfg.SendTimeout())
}

func provideApp(p Params, st *chat.Store, pipeline *chat.Pipeline, failed *chat.FailedQueue, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *tui.App {
	a := tui.NewApp(st, pipeline, failed, b, logger, cfg.UserID, p.ProfileName)
	pipeline.SetDraftRestorer(a)
	return a
}

func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, ui *tui.App, prober *connectivity.Prober, monitor *connectivity.Monitor, pipeline *chat.Pipeline, failed *chat.FailedQueue, st *chat.Store, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Failed messages saved by a previous run must not collide
			// with freshly drawn nonces.
			pipeline.ReserveNonces(failed.Messages())

			// A reconnect reloads the conversation list when the last
			// surfaced error was connectivity-caused.
			monitor.BindReload(st.LastErrorWasConnectivity, func() {
				_ = st.List(context.Background())
			})
			prober.Start(context.Background())

			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("terminal ui error", zap.Error(err))
				}
				_ = sd.Shutdown()
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			prober.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing drafts store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
