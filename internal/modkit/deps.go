// Package modkit provides module wiring and core deps
package modkit

import (
	"jagapadi/internal/core/gate"
	"jagapadi/internal/core/loop"
	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	"jagapadi/internal/platform/store"
	ptime "jagapadi/internal/platform/time"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	KV      store.KV
	Metrics *metrics.Metrics

	// Clock is nil in production, modules fall back to time.Now
	Clock ptime.Clock

	// Sched is the shell's event loop; every UI mutation runs on it
	Sched loop.Scheduler

	// Gate holds inbound host calls until the shell has booted
	Gate *gate.Gate
}

// Ready reports whether the deps every stateful module needs are present
func (d Deps) Ready() bool { return d.KV != nil && d.Sched != nil && d.Gate != nil }
