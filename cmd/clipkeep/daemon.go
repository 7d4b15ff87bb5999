package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipkeep/clipkeep/internal/api"
	"github.com/clipkeep/clipkeep/internal/clip"
	"github.com/clipkeep/clipkeep/internal/content"
	"github.com/clipkeep/clipkeep/internal/event"
	"github.com/clipkeep/clipkeep/internal/history"
	"github.com/clipkeep/clipkeep/internal/ipc"
	"github.com/clipkeep/clipkeep/internal/monitor"
	"github.com/clipkeep/clipkeep/internal/remote"
	"github.com/clipkeep/clipkeep/internal/syncer"
)

const defaultServerURL = "https://gcopy.llaoj.cn"

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the clipboard, keep history, and sync with the server",
		Long: `Runs the clipkeep daemon: monitors the system clipboard, records each
copy into the bounded history, pushes changes to the configured server, and
applies newer remote content locally.

The daemon exposes a control API on a local Unix socket for the other
sub-commands, and optionally on a TCP address via --listen for tray or web
front ends. Changing sync-interval or the sync-* kind toggles in the config
file is picked up without a restart.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.String("server-url", defaultServerURL, "remote clipboard server base URL")
	f.Duration("sync-interval", syncer.DefaultInterval, "interval between automatic sync cycles")
	f.Bool("auto-sync", true, "start with automatic sync enabled")
	f.Bool("sync-text", true, "sync text clipboard content")
	f.Bool("sync-screenshot", true, "sync image clipboard content")
	f.Bool("sync-file", true, "sync file content sent through the control API")
	f.Int("history-max", history.DefaultMaxUnpinned, "maximum unpinned history entries")
	f.String("history-db", "", "SQLite file for persistent history (default: in-memory)")
	f.Duration("poll-interval", clip.DefaultPollInterval, "clipboard change poll cadence")
	f.String("listen", "", "additional TCP address for the control API, e.g. 127.0.0.1:3375")
	f.String("device", defaultDevice(), "device name used in logs")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	setupLogging(v)

	serverURL := v.GetString("server-url")
	slog.Info("clipkeep daemon starting",
		"version", Version,
		"device", v.GetString("device"),
		"server", serverURL,
		"auto_sync", v.GetBool("auto-sync"),
	)

	store, err := openStore(v)
	if err != nil {
		return err
	}
	defer store.Close()

	backend := clip.New(clip.Options{PollInterval: v.GetDuration("poll-interval")})
	defer backend.Close()
	slog.Info("clipboard backend ready", "backend", backend.Name())

	bus := event.NewBus()
	mon := monitor.New(backend, bus)
	state := syncer.NewState(v.GetBool("auto-sync"))
	engine := syncer.New(state, remote.New(serverURL, nil), store, mon, bus, syncer.Options{
		Interval: v.GetDuration("sync-interval"),
		Kinds:    kindsFromConfig(v),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Local changes: record, then offer for push. The monitor publishes the
	// change event itself.
	subID, changes := mon.Subscribe()
	defer mon.Unsubscribe(subID)
	go func() {
		for item := range changes {
			if _, err := store.Append(ctx, item); err != nil {
				slog.Warn("history append failed", "err", err)
			}
			engine.OnLocalChange(ctx, item)
		}
	}()

	mon.Start()
	defer mon.Stop()
	engine.Start()
	defer engine.Stop()

	handler := api.New(store, mon, engine, bus).Routes()
	shutdown, err := serveControl(v, handler)
	if err != nil {
		return err
	}
	defer shutdown()

	watchConfig(v, engine)

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// openStore picks the history backend: SQLite when --history-db is set,
// in-memory otherwise.
func openStore(v *viper.Viper) (history.Store, error) {
	maxEntries := v.GetInt("history-max")
	if path := v.GetString("history-db"); path != "" {
		store, err := history.OpenSQLite(path, maxEntries)
		if err != nil {
			return nil, err
		}
		slog.Info("history persisted", "db", path, "max_unpinned", maxEntries)
		return store, nil
	}
	slog.Info("history in memory", "max_unpinned", maxEntries)
	return history.NewMemory(maxEntries), nil
}

func kindsFromConfig(v *viper.Viper) map[content.Kind]bool {
	return map[content.Kind]bool{
		content.KindText:  v.GetBool("sync-text"),
		content.KindImage: v.GetBool("sync-screenshot"),
		content.KindFile:  v.GetBool("sync-file"),
	}
}

// serveControl exposes handler on the Unix control socket and, when
// --listen is set, on TCP. The returned func shuts both down.
func serveControl(v *viper.Viper, handler http.Handler) (func(), error) {
	srv := &http.Server{Handler: handler}

	if ln, err := ipc.Listen(); err != nil {
		slog.Warn("control socket unavailable", "err", err, "path", ipc.SocketPath())
	} else {
		slog.Info("control API listening", "socket", ipc.SocketPath())
		go serveOn(srv, ln)
	}

	if addr := v.GetString("listen"); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		slog.Info("control API listening", "addr", ln.Addr().String())
		go serveOn(srv, ln)
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = os.Remove(ipc.SocketPath())
	}
	return shutdown, nil
}

func serveOn(srv *http.Server, ln net.Listener) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("control server failed", "err", err)
	}
}

// watchConfig hot-applies the sync cadence and kind toggles when the config
// file changes. Everything else needs a restart.
func watchConfig(v *viper.Viper, engine *syncer.Engine) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		engine.SetInterval(v.GetDuration("sync-interval"))
		engine.SetKinds(kindsFromConfig(v))
		slog.Info("config reloaded",
			"file", v.ConfigFileUsed(),
			"sync_interval", v.GetDuration("sync-interval"))
	})
	v.WatchConfig()
}
