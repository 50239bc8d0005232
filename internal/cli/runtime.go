package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/planet-dev/planet/internal/config"
	"github.com/planet-dev/planet/internal/events"
	"github.com/planet-dev/planet/internal/journal"
	"github.com/planet-dev/planet/internal/ledger"
	"github.com/planet-dev/planet/internal/logging"
	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/session"
)

// drainTimeout bounds how long shutdown waits for recorders to catch up.
const drainTimeout = 2 * time.Second

// runtimeOptions selects how a command's session is set up.
type runtimeOptions struct {
	// quiet keeps diagnostic logs off stderr (full-screen UI).
	quiet bool
	// binding starts the session bound to a document already on the server.
	binding string
	// noSeed starts the session with no messages.
	noSeed bool
}

// runtime is everything one command invocation needs: config, server
// client, event bus with its recorders, and the session controller.
type runtime struct {
	dir    string
	cfg    *config.Config
	client *remote.Client
	bus    *events.Bus
	ctrl   *session.Controller
	store  *ledger.Store

	logCloser io.Closer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// loadConfig reads config for the working directory and applies flags.
func loadConfig() (string, *config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return "", nil, err
	}
	if serverFlag != "" {
		cfg.Server.BaseURL = serverFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	return dir, cfg, nil
}

func newClient(cfg *config.Config) (*remote.Client, error) {
	return remote.New(remote.Options{
		BaseURL:      cfg.Server.BaseURL,
		Timeout:      cfg.Server.TimeoutDuration(),
		MaxRedirects: cfg.Server.MaxRedirects,
		DocumentsTTL: cfg.Server.DocumentsTTLDuration(),
	})
}

func initLogging(dir string, cfg *config.Config, quiet bool) (io.Closer, error) {
	logCfg := logging.Config{
		Level:  cfg.Log.Level,
		Format: "text",
		Quiet:  quiet,
	}
	if cfg.Log.File != "" {
		if err := os.MkdirAll(config.Dir(dir), 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		logCfg.File = filepath.Join(config.Dir(dir), cfg.Log.File)
	}
	return logging.InitLogger(logCfg)
}

// newRuntime wires a session for one command. Recorders subscribe before
// the controller exists so they see the session_started event.
func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	dir, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCloser, err := initLogging(dir, cfg, opts.quiet)
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	rt := &runtime{
		dir:       dir,
		cfg:       cfg,
		client:    client,
		bus:       events.New(events.NewZerologAdapter(log.Logger)),
		logCloser: logCloser,
		cancel:    cancel,
	}

	if err := rt.startRecorders(ctx); err != nil {
		rt.close()
		return nil, err
	}

	seed := cfg.Chat.Seed
	if opts.noSeed {
		seed = nil
	}
	state := session.NewState(seed)
	if opts.binding != "" {
		state = session.NewBoundState(seed, opts.binding)
	}
	rt.ctrl = session.NewController(state, client, session.WithNotifier(rt.bus))

	log.Debug().
		Str("session", state.ID()).
		Str("server", client.BaseURL()).
		Msg("session started")
	return rt, nil
}

func (rt *runtime) startRecorders(ctx context.Context) error {
	if rt.cfg.Log.Journal {
		j, err := journal.New(rt.dir)
		if err != nil {
			return err
		}
		ch, err := rt.bus.Subscribe(ctx)
		if err != nil {
			return err
		}
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			j.Record(ctx, ch, func(err error) {
				log.Warn().Err(err).Msg("journal write failed")
			})
		}()
	}

	if rt.cfg.Ledger.Enabled {
		store, err := openLedger(rt.dir)
		if err != nil {
			return err
		}
		rt.store = store
		ch, err := rt.bus.Subscribe(ctx)
		if err != nil {
			return err
		}
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			store.Record(ctx, ch, func(err error) {
				log.Warn().Err(err).Msg("ledger write failed")
			})
		}()
	}
	return nil
}

func openLedger(dir string) (*ledger.Store, error) {
	if err := os.MkdirAll(config.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("creating .planet directory: %w", err)
	}
	return ledger.NewStore(filepath.Join(config.Dir(dir), "uploads.db"))
}

// close lets recorders catch up, then releases everything.
func (rt *runtime) close() {
	if !rt.bus.Drain(drainTimeout) {
		log.Warn().Msg("event recorders did not catch up before exit")
	}
	_ = rt.bus.Close()
	rt.cancel()
	rt.wg.Wait()
	if rt.store != nil {
		_ = rt.store.Close()
	}
	_ = rt.logCloser.Close()
}
