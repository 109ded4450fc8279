package topic

import (
	"context"
	"fmt"
	"sync"

	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/log"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/protobuf"
	"github.com/kaans/mqtli/internal/trigger"
)

// registered is one loaded Entry plus its resolved per-topic conversion
// Options (protobuf pool bound, if any).
type registered struct {
	entry *Entry
	opts  payload.Options
}

// Engine binds the configured TopicEntry set to an MQTT Publisher and a
// SqlSink (spec §4.5). It owns no connection itself.
type Engine struct {
	log log.Logger
	pub Publisher
	sql SqlSink
	read FileReader

	mu      sync.Mutex
	entries []*registered
	files   map[string]*fileSink // shared across entries: same path -> same sink
}

// NewEngine builds an empty Engine. read is used to load file-backed
// PublishInput content; pass os.ReadFile in production. Protobuf descriptors
// are read from disk by protobuf.LoadPool.
func NewEngine(logger log.Logger, pub Publisher, sql SqlSink, read FileReader) *Engine {
	return &Engine{
		log:   logger,
		pub:   pub,
		sql:   sql,
		read:  read,
		files: make(map[string]*fileSink),
	}
}

// AddEntry loads one TopicEntry: resolving its Protobuf descriptor (fatal
// DescriptorError if unresolvable, per spec §4.2), resolving a descriptor
// pool for every subscription Output that independently declares a Protobuf
// format, and registering it for subscription matching and/or publish
// scheduling.
func (e *Engine) AddEntry(entry *Entry) error {
	opts := payload.Options{RawAs: entry.Format.RawAs, ProtoMessage: entry.Format.ProtoMessageName}
	if entry.Format.Kind == payload.Protobuf {
		pool, err := protobuf.LoadPool(entry.Format.ProtoDefinitionPath)
		if err != nil {
			return err
		}
		if _, err := pool.ResolveMessage(entry.Format.ProtoMessageName); err != nil {
			return err
		}
		opts.ProtoPool = pool
		entry.Format.ProtoPool = pool
	}

	if entry.Subscription != nil {
		for i, out := range entry.Subscription.Outputs {
			if out.Format.Kind != payload.Protobuf {
				continue
			}
			pool, err := protobuf.LoadPool(out.Format.ProtoDefinitionPath)
			if err != nil {
				return err
			}
			if _, err := pool.ResolveMessage(out.Format.ProtoMessageName); err != nil {
				return err
			}
			entry.Subscription.Outputs[i].Format.ProtoPool = pool
		}
	}

	reg := &registered{entry: entry, opts: opts}
	e.mu.Lock()
	entry.Pattern = normalizePattern(entry.Pattern)
	e.entries = append(e.entries, reg)
	e.mu.Unlock()
	return nil
}

// SubscriptionPattern is one pattern this engine needs subscribed, with the
// maximum subscription QoS across the enabled entries that declare it.
type SubscriptionPattern struct {
	Pattern string
	QoS     byte
}

// SubscriptionPatterns returns the union of enabled subscription patterns,
// per spec §4.5 ("subscribes to the union of enabled subscription topic
// patterns with the max QoS required").
func (e *Engine) SubscriptionPatterns() []SubscriptionPattern {
	e.mu.Lock()
	defer e.mu.Unlock()

	byPattern := make(map[string]byte)
	var order []string
	for _, reg := range e.entries {
		sub := reg.entry.Subscription
		if sub == nil || !sub.Enabled {
			continue
		}
		qos := sub.QoS
		if cur, ok := byPattern[reg.entry.Pattern]; !ok {
			order = append(order, reg.entry.Pattern)
			byPattern[reg.entry.Pattern] = qos
		} else if qos > cur {
			byPattern[reg.entry.Pattern] = qos
		}
	}
	out := make([]SubscriptionPattern, 0, len(order))
	for _, p := range order {
		out = append(out, SubscriptionPattern{Pattern: p, QoS: byPattern[p]})
	}
	return out
}

// HandleInbound implements spec §4.5's incoming-message dispatch: find every
// matching entry, construct a Payload from the wire bytes under that entry's
// declared format, run its subscription filter chain, and fan each result
// out to every configured output. Per-message errors are logged and
// swallowed so the pipeline stays alive for subsequent messages (spec §7).
func (e *Engine) HandleInbound(ctx context.Context, topicName string, body []byte, qos byte, retain bool) {
	e.mu.Lock()
	matches := make([]*registered, 0, 1)
	for _, reg := range e.entries {
		sub := reg.entry.Subscription
		if sub == nil || !sub.Enabled {
			continue
		}
		if matchPattern(reg.entry.Pattern, topicName) {
			matches = append(matches, reg)
		}
	}
	e.mu.Unlock()

	for _, reg := range matches {
		e.dispatchOne(ctx, reg, topicName, body, qos, retain)
	}
}

func (e *Engine) dispatchOne(ctx context.Context, reg *registered, topicName string, body []byte, qos byte, retain bool) {
	logger := e.log.WithFields(map[string]interface{}{"topic": topicName, "pattern": reg.entry.Pattern})

	in, err := payload.FromWire(reg.entry.Format.Kind, body, reg.opts)
	if err != nil {
		logger.Warnf("decode failed, dropping message: %v", err)
		return
	}

	results, err := reg.entry.Subscription.Filters.Run([]payload.Payload{in}, reg.opts)
	if err != nil {
		logger.Warnf("filter chain failed, dropping message: %v", err)
		return
	}

	for _, out := range reg.entry.Subscription.Outputs {
		for _, p := range results {
			if err := e.emit(ctx, out, topicName, p, qos, retain); err != nil {
				logger.Warnf("output failed: %v", err)
			}
		}
	}
}

// StartPublishers registers every enabled publish.triggers Periodic trigger
// on the scheduler; each tick assembles, filters, converts and publishes one
// message per spec §4.5's publishing path.
func (e *Engine) StartPublishers(ctx context.Context, sched *trigger.Scheduler) {
	e.mu.Lock()
	regs := append([]*registered{}, e.entries...)
	e.mu.Unlock()

	for _, reg := range regs {
		pub := reg.entry.Publish
		if pub == nil || !pub.Enabled {
			continue
		}
		reg := reg
		for _, spec := range pub.Triggers {
			sched.Run(ctx, spec, func(ctx context.Context) {
				e.publishTick(ctx, reg)
			})
		}
	}
}

func (e *Engine) publishTick(ctx context.Context, reg *registered) {
	logger := e.log.WithField("topic", reg.entry.Pattern)

	in, err := e.assembleInput(reg.entry.Publish.Input)
	if err != nil {
		logger.Warnf("publish input failed: %v", err)
		return
	}
	if in == nil {
		return // Null input: no-op publish
	}

	results, err := reg.entry.Publish.Filters.Run([]payload.Payload{*in}, reg.opts)
	if err != nil {
		logger.Warnf("publish filter chain failed: %v", err)
		return
	}

	for _, p := range results {
		out, err := payload.Convert(p, reg.entry.Format.Kind, reg.opts)
		if err != nil {
			logger.Warnf("publish convert failed: %v", err)
			continue
		}
		wire, err := out.Serialize()
		if err != nil {
			logger.Warnf("publish serialize failed: %v", err)
			continue
		}
		if err := e.pub.Publish(ctx, reg.entry.Pattern, reg.entry.Publish.QoS, reg.entry.Publish.Retain, wire); err != nil {
			logger.Warnf("publish failed: %v", err)
		}
	}
}

// assembleInput builds a Payload from a PublishInput, reading from Path
// first when both Path and Content are present (spec §3: "path wins if both
// provided").
func (e *Engine) assembleInput(in PublishInput) (*payload.Payload, error) {
	var content []byte
	if in.HasPath {
		b, err := e.read(in.Path)
		if err != nil {
			return nil, &errs.SinkError{Sink: "publish_input_file", Cause: err}
		}
		content = b
	} else {
		content = []byte(in.Content)
	}

	switch in.Kind {
	case InputNull:
		return nil, nil
	case InputText:
		p := payload.NewText(string(content))
		return &p, nil
	case InputRaw:
		p := payload.NewRaw(content)
		return &p, nil
	case InputHex, InputBase64, InputJSON, InputYAML:
		kind := map[InputKind]payload.Kind{
			InputHex: payload.Hex, InputBase64: payload.Base64,
			InputJSON: payload.JSON, InputYAML: payload.YAML,
		}[in.Kind]
		p, err := payload.FromWire(kind, content, payload.Options{})
		if err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown publish input kind %d", in.Kind)
	}
}
