// Package app wires a validated config.Config into the running system:
// topic engine, MQTT session, trigger scheduler, SQL storage, and the
// Sparkplug network-mode tracker, with a signal-driven graceful shutdown.
// This is the "external collaborator" layer spec.md §1 scopes out of the
// core — the core packages (internal/topic, internal/mqttsession, ...)
// know nothing of cmd-line flags, signals, or process lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/log"
	"github.com/kaans/mqtli/internal/mqttsession"
	"github.com/kaans/mqtli/internal/sparkplugnet"
	"github.com/kaans/mqtli/internal/sqlsink"
	"github.com/kaans/mqtli/internal/topic"
	"github.com/kaans/mqtli/internal/trigger"
)

// ShutdownGrace bounds how long the drain step waits for in-flight publishes
// and trigger goroutines to finish once a shutdown signal arrives (spec §5's
// "drain in-flight pipelines with a bounded deadline", sized per
// SPEC_FULL.md's supplemented-feature default).
const ShutdownGrace = 5 * time.Second

// Exit codes per spec §6.
const (
	ExitOK            = 0
	ExitConfigError   = 1
	ExitStartupError  = 2
	ExitSignalAborted = 130
)

// App holds every long-lived component this process owns, so Run can tear
// them all down in reverse order on shutdown.
type App struct {
	log     log.Logger
	session *mqttsession.Session
	storage *sqlsink.Storage
	engine  *topic.Engine
	tracker *sparkplugnet.Tracker
	sched   *trigger.Scheduler
}

// Build constructs every component from cfg but does not connect to the
// broker yet; Run does that. Splitting construction from connection
// lets cmd/mqtli's --dry-run path exercise descriptor resolution and SQL
// pool creation without a live broker.
func Build(cfg config.Config, logger log.Logger) (*App, error) {
	a := &App{log: logger, sched: trigger.New()}

	storage, err := config.BuildSQLStorage(cfg.SQLStorage)
	if err != nil {
		return nil, fmt.Errorf("sql_storage: %w", err)
	}
	a.storage = storage

	sessCfg := config.BuildSession(cfg.Broker)
	session, err := mqttsession.New(sessCfg, logger, a.dispatch)
	if err != nil {
		return nil, fmt.Errorf("mqtt session: %w", err)
	}
	a.session = session

	if cfg.Mode == config.ModeSparkplug {
		a.tracker = sparkplugnet.New(logger)
		return a, nil
	}

	var sqlSink topic.SqlSink
	if storage != nil {
		sqlSink = storage
	}
	a.engine = topic.NewEngine(logger, session, sqlSink, os.ReadFile)
	entries, err := config.BuildEntries(cfg.Topics)
	if err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}
	for _, e := range entries {
		if err := a.engine.AddEntry(e); err != nil {
			return nil, &errs.DescriptorError{Path: e.Format.ProtoDefinitionPath, Cause: err}
		}
	}

	return a, nil
}

func (a *App) dispatch(topicName string, qos byte, retain bool, body []byte) {
	ctx := context.Background()
	if a.tracker != nil {
		a.tracker.HandleMessage(topicName, body)
		return
	}
	a.engine.HandleInbound(ctx, topicName, body, qos, retain)
}

// Run connects to the broker, then subscribes and/or starts publishers
// according to cfg.Mode (spec §6: ModePublish skips subscribing, ModeSubscribe
// skips starting publishers; ModeDefault does both; ModeSparkplug only
// subscribes to the Sparkplug topics). If no
// subscriptions end up active, it exits as soon as every scheduled trigger has
// exhausted its count (spec §4.4: "if every remaining task is complete ...
// and no subscriptions are active, the process exits successfully" — spec
// §8 Scenario 5). Otherwise it blocks until SIGINT/SIGTERM, then drains and
// disconnects cleanly. It returns the process exit code per spec §6.
func (a *App) Run(parent context.Context, cfg config.Config) int {
	sessionCtx, cancelSession := context.WithCancel(parent)
	defer cancelSession()

	if err := a.session.Connect(sessionCtx); err != nil {
		a.log.Errorf("connect failed: %v", err)
		return ExitStartupError
	}

	var cancelPub context.CancelFunc
	hasSubscriptions := a.tracker != nil // network mode always subscribes to spBv1.0/#
	if a.tracker != nil {
		patterns := sparkplugnet.SubscriptionPatterns(cfg.Sparkplug.IncludeGroups)
		for _, p := range patterns {
			if err := a.session.Subscribe(p, byte(cfg.Sparkplug.QoS)); err != nil {
				a.log.Errorf("subscribe %s failed: %v", p, err)
				return ExitStartupError
			}
		}
	} else {
		if cfg.Mode != config.ModePublish {
			subs := a.engine.SubscriptionPatterns()
			hasSubscriptions = len(subs) > 0
			for _, sp := range subs {
				if err := a.session.Subscribe(sp.Pattern, sp.QoS); err != nil {
					a.log.Errorf("subscribe %s failed: %v", sp.Pattern, err)
					return ExitStartupError
				}
			}
		}
		if cfg.Mode != config.ModeSubscribe {
			var pubCtx context.Context
			pubCtx, cancelPub = context.WithCancel(sessionCtx)
			defer cancelPub()
			a.engine.StartPublishers(pubCtx, a.sched)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := awaitShutdown(sigCh, a.sched, hasSubscriptions)
	if sig != nil {
		a.log.Infof("received %s, shutting down", sig)
	} else {
		a.log.Infof("all publish triggers exhausted, no active subscriptions, exiting")
	}

	if cancelPub != nil {
		cancelPub()
		a.drain()
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log.Warnf("closing outputs: %v", err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warnf("closing sql storage: %v", err)
		}
	}
	cancelSession()
	a.session.Disconnect(uint(ShutdownGrace.Milliseconds()))

	if sig == syscall.SIGINT {
		return ExitSignalAborted
	}
	return ExitOK
}

// drain waits up to ShutdownGrace for in-flight pipelines to finish, per
// spec §5. The caller cancels the publisher context first, which is what
// stops new trigger ticks.
func (a *App) drain() {
	done := make(chan struct{})
	go func() {
		a.sched.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ShutdownGrace):
		a.log.Warnf("shutdown grace period (%s) elapsed with triggers still running", ShutdownGrace)
	}
}

// awaitShutdown blocks until either an OS signal arrives on sigCh or, when
// hasSubscriptions is false, every scheduled trigger has exhausted its count
// (spec §4.4: "if every remaining task is complete ... and no subscriptions
// are active, the process exits successfully" — spec §8 Scenario 5). It
// returns the received signal, or nil when the scheduler drained first. When
// hasSubscriptions is true the process has no natural end and this always
// returns a real signal.
func awaitShutdown(sigCh <-chan os.Signal, sched *trigger.Scheduler, hasSubscriptions bool) os.Signal {
	if hasSubscriptions {
		return <-sigCh
	}

	drained := make(chan struct{})
	go func() {
		sched.Wait()
		close(drained)
	}()

	select {
	case sig := <-sigCh:
		return sig
	case <-drained:
		return nil
	}
}
