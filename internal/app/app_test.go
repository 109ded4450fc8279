package app

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/log"
	"github.com/kaans/mqtli/internal/trigger"
)

func TestBuildMultiTopicModeConstructsEngine(t *testing.T) {
	cfg := config.Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Topics = []config.Topic{{
		TopicPattern: "mqtli/test",
		Payload:      config.FormatSpec{Kind: "text"},
		Subscription: &config.Subscription{Enabled: true, Outputs: []config.Output{{Type: "console"}}},
	}}

	a, err := Build(cfg, log.Noop())
	require.NoError(t, err)
	assert.NotNil(t, a.engine)
	assert.Nil(t, a.tracker)
}

func TestBuildSparkplugModeConstructsTracker(t *testing.T) {
	cfg := config.Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Mode = config.ModeSparkplug

	a, err := Build(cfg, log.Noop())
	require.NoError(t, err)
	assert.NotNil(t, a.tracker)
	assert.Nil(t, a.engine)
}

func TestBuildRejectsUnresolvableProtobufDescriptor(t *testing.T) {
	cfg := config.Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Topics = []config.Topic{{
		TopicPattern: "mqtli/proto",
		Payload:      config.FormatSpec{Kind: "protobuf", DefinitionPath: "/nonexistent.proto", MessageName: "x.Y"},
	}}

	_, err := Build(cfg, log.Noop())
	assert.Error(t, err)
}

func TestBuildPropagatesSQLStorageOpenError(t *testing.T) {
	cfg := config.Defaults()
	cfg.Broker.Host = "localhost"
	cfg.SQLStorage = &config.SQLStorage{Driver: "not-a-real-driver", ConnectionString: "x"}

	_, err := Build(cfg, log.Noop())
	assert.Error(t, err)
}

// TestAwaitShutdownExitsWhenTriggersDrain covers spec §8 Scenario 5: a
// publish-only run with no active subscriptions must exit on its own once
// every bounded trigger has fired its Count, without waiting on a signal.
func TestAwaitShutdownExitsWhenTriggersDrain(t *testing.T) {
	sched := trigger.New()
	sched.Run(context.Background(), trigger.Spec{IntervalMs: 1, Count: 3, HasCount: true}, func(context.Context) {})

	sigCh := make(chan os.Signal, 1)

	done := make(chan os.Signal, 1)
	go func() { done <- awaitShutdown(sigCh, sched, false) }()

	select {
	case sig := <-done:
		assert.Nil(t, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("awaitShutdown did not return once triggers drained")
	}
}

// TestAwaitShutdownWaitsForSignalWithSubscriptions covers the normal
// subscribe-and-serve case: with an active subscription, awaitShutdown never
// returns on its own and only unblocks once a signal is delivered.
func TestAwaitShutdownWaitsForSignalWithSubscriptions(t *testing.T) {
	sched := trigger.New()
	sigCh := make(chan os.Signal, 1)

	done := make(chan os.Signal, 1)
	go func() { done <- awaitShutdown(sigCh, sched, true) }()

	select {
	case <-done:
		t.Fatal("awaitShutdown returned before any signal was sent")
	case <-time.After(100 * time.Millisecond):
	}

	sigCh <- syscall.SIGINT
	select {
	case sig := <-done:
		assert.Equal(t, syscall.SIGINT, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("awaitShutdown did not return after signal delivery")
	}
}

// TestAwaitShutdownSignalWinsOverDrain covers a signal arriving before an
// unbounded/no-subscription run would otherwise drain on its own.
func TestAwaitShutdownSignalWinsOverDrain(t *testing.T) {
	sched := trigger.New()
	sched.Run(context.Background(), trigger.Spec{IntervalMs: 1000, InitialDelayMs: 1000, Count: 1, HasCount: true}, func(context.Context) {})

	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	done := make(chan os.Signal, 1)
	go func() { done <- awaitShutdown(sigCh, sched, false) }()

	select {
	case sig := <-done:
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("awaitShutdown did not return after signal delivery")
	}
}
