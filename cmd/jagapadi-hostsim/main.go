// Command jagapadi-hostsim stands in for the native host during development.
// It attaches to the shell's bridge, accepts one password, answers image
// submissions with demo findings and serves a synthetic camera
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"jagapadi/internal/core/advisory"
	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
)

func main() {
	root := config.New()
	logger.Init(logger.FromEnv())
	l := logger.Named("hostsim")
	c := root.Prefix("HOSTSIM_")

	var (
		fURL      = flag.String("url", c.MayString("URL", "ws://127.0.0.1:8765/bridge"), "shell bridge websocket url")
		fToken    = flag.String("token", c.MayString("TOKEN", ""), "bridge bearer token")
		fPassword = flag.String("password", c.MayString("PASSWORD", "jagapadi"), "password the simulated backend accepts")
		fDelivery = flag.String("delivery", c.MayEnum("DELIVERY", "async", "async", "response"), "result delivery: async | response")
		fLatency  = flag.Duration("latency", c.MayDuration("LATENCY", 1500*time.Millisecond), "simulated analysis time")
		fCamera   = flag.String("camera", c.MayString("CAMERA", ""), "camera refusal to simulate, e.g. NotAllowedError")
		fHistory  = flag.Int("history", c.MayInt("HISTORY", 3), "server history records pushed after frontendReady")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := advisory.MustLoad()
	sim := &host{
		log:      *l,
		password: *fPassword,
		delivery: *fDelivery,
		latency:  *fLatency,
		camera:   *fCamera,
		history:  *fHistory,
		catalog:  catalog,
		gen:      advisory.NewDemoGenerator(catalog, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 7))),
	}

	hdr := http.Header{}
	if *fToken != "" {
		hdr.Set("Authorization", "Bearer "+*fToken)
	}
	// one dial attempt per second at most, bursts of one
	lim := rate.NewLimiter(rate.Every(time.Second), 1)
	for {
		if err := lim.Wait(ctx); err != nil {
			break
		}
		ws, resp, err := websocket.DefaultDialer.DialContext(ctx, *fURL, hdr)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			l.Warn().Err(err).Str("url", *fURL).Msg("dial failed, retrying")
			continue
		}
		l.Info().Str("url", *fURL).Str("delivery", *fDelivery).Msg("attached to shell")
		err = sim.serve(ctx, ws)
		if ctx.Err() != nil {
			break
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Warn().Err(err).Msg("session ended")
		}
	}
	l.Info().Msg("hostsim stopped")
}
