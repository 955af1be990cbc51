// Command jagapadi-shell runs the pest detection shell: the event loop, the
// host bridge, the view api and the local history store
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jagapadi/internal/core/gate"
	"jagapadi/internal/core/loop"
	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/module"
	"jagapadi/internal/modkit/repokit"
	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	phttp "jagapadi/internal/platform/net/http"
	"jagapadi/internal/platform/store"

	"jagapadi/internal/services/api"
	metamod "jagapadi/internal/services/api/meta/module"
	bridgedom "jagapadi/internal/services/bridge/domain"
	bridgemod "jagapadi/internal/services/bridge/module"
	histdom "jagapadi/internal/services/history/domain"
	histmod "jagapadi/internal/services/history/module"
	shellmod "jagapadi/internal/services/shell/module"
)

func main() {
	root := config.New()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.MustNew()

	// durable kv: sqlite by default, postgres or memory by CORE_STORE_DRIVER
	st, err := store.Open(ctx, store.FromConf(root.Prefix("CORE_STORE_"), "jagapadi-shell"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	repokit.MustGuard(ctx, st)
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	lp := loop.New()
	deps := modkit.Deps{
		Log:     *l,
		Cfg:     root,
		KV:      st.KV,
		Metrics: m,
		Sched:   lp,
		Gate:    gate.New(gate.WithLogger(*logger.Named("gate")), gate.WithMetrics(m.Gate)),
	}

	histOpts := histmod.FromConfig(root)
	history := histmod.New(deps, histOpts)
	bridge := bridgemod.New(deps, bridgemod.FromConfig(root))
	shell := shellmod.New(deps,
		module.MustPortsOf[bridgedom.Port](bridge),
		module.MustPortsOf[histdom.Port](history),
		histOpts.Location,
	)
	app := shell.App()

	srv := phttp.NewServer(root.Prefix("CORE_HTTP_"))
	httpCfg := root.Prefix("CORE_HTTP_")
	api.Mount(srv.Router(), api.Options{
		Deps:     deps,
		Shell:    app,
		History:  app.History(),
		Location: histOpts.Location,
		Bridge:   bridge,
		Checks: []metamod.Check{
			{Name: "store", Probe: st.Guard},
			{Name: "shell", Probe: func(context.Context) error {
				if !app.Ready() {
					return errors.New("booting")
				}
				return nil
			}},
			{Name: "host", Soft: true, Probe: func(context.Context) error {
				if !bridge.Hub().Connected() {
					return errors.New("no host attached")
				}
				return nil
			}},
			{Name: "history", Soft: true, Probe: func(context.Context) error {
				if history.Service().MemoryOnly() {
					return errors.New("running in memory only")
				}
				return nil
			}},
		},
		SessionID:      uuid.NewString(),
		EnableProfiler: httpCfg.MayBool("PROFILER", false),
		EnableDocs:     root.Prefix("CORE_API_").MayBool("DOCS", false),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lp.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		if err := app.Boot(gctx); err != nil {
			return err
		}
		l.Info().Str("addr", srv.Addr()).Msg("jagapadi shell up")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Msg("shell stopped with error")
	}

	// loop is gone; release what the app held and get history onto disk
	app.Close()
	bridge.Hub().Close()
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := history.Service().Flush(sctx); err != nil {
		l.Error().Err(err).Msg("history flush on shutdown failed")
	}
	history.Service().Close()
	l.Info().Msg("jagapadi shell stopped")
}
