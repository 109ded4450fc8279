// Package sparkplugnet implements the Sparkplug Network Mode of spec §4.8:
// a volatile in-memory tracker of edge-node/device state, decoding NBIRTH/
// DBIRTH/NDATA/DDATA/NDEATH/DDEATH/STATE traffic and rendering structured
// output to the console.
package sparkplugnet

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/kaans/mqtli/internal/log"
	"github.com/kaans/mqtli/internal/sparkplug"
)

type nodeKey struct {
	group, edge string
}

// nodeState is the volatile per-(group, edge_node) state named in spec
// §4.8: an alias→metric-name lookup built from NBIRTH (and per-device from
// DBIRTH), plus the last known bdSeq for death-message formatting.
type nodeState struct {
	aliasToName map[uint64]string
	deviceAlias map[string]map[uint64]string
	bdSeq       uint64
	hasBdSeq    bool
}

func newNodeState() *nodeState {
	return &nodeState{
		aliasToName: make(map[uint64]string),
		deviceAlias: make(map[string]map[uint64]string),
	}
}

// Tracker holds all known edge-node state and renders decoded messages to
// an output writer (stdout by default).
type Tracker struct {
	log log.Logger
	out io.Writer

	mu    sync.Mutex
	nodes map[nodeKey]*nodeState
}

// New builds an empty Tracker writing rendered messages to os.Stdout.
func New(logger log.Logger) *Tracker {
	return &Tracker{log: logger, out: os.Stdout, nodes: make(map[nodeKey]*nodeState)}
}

// SubscriptionPatterns returns the patterns to subscribe for network mode:
// "spBv1.0/#" when includeGroups is empty, or one "spBv1.0/<group>/#" per
// restricted group otherwise (spec §4.8).
func SubscriptionPatterns(includeGroups []string) []string {
	if len(includeGroups) == 0 {
		return []string{"spBv1.0/#"}
	}
	out := make([]string, len(includeGroups))
	for i, g := range includeGroups {
		out[i] = fmt.Sprintf("spBv1.0/%s/#", g)
	}
	return out
}

// HandleMessage decodes one inbound Sparkplug-B message and renders it;
// non-Sparkplug topics are ignored. Decode failures are logged and the
// message is dropped; a metric with a stale alias is logged and only that
// metric is dropped, per spec §4.8's "best-effort" rule.
func (t *Tracker) HandleMessage(topicName string, body []byte) {
	top, ok := sparkplug.ParseTopic(topicName)
	if !ok {
		return
	}

	if top.MessageType == sparkplug.STATE {
		t.renderSTATE(top, body)
		return
	}

	decoded, err := sparkplug.Decode(body)
	if err != nil {
		t.log.Warnf("sparkplug decode failed for %s: %v", topicName, err)
		return
	}

	key := nodeKey{group: top.Group, edge: top.EdgeNode}
	t.mu.Lock()
	state, ok := t.nodes[key]
	if !ok {
		state = newNodeState()
		t.nodes[key] = state
	}
	t.mu.Unlock()

	switch top.MessageType {
	case sparkplug.NBIRTH:
		t.handleBirth(state, "", decoded)
		t.render(top, decoded)
	case sparkplug.DBIRTH:
		t.handleBirth(state, top.Device, decoded)
		t.render(top, decoded)
	case sparkplug.NDATA:
		t.resolveAliases(state, "", decoded)
		t.render(top, decoded)
	case sparkplug.DDATA:
		t.resolveAliases(state, top.Device, decoded)
		t.render(top, decoded)
	case sparkplug.NDEATH, sparkplug.DDEATH:
		t.handleDeath(state, top, decoded)
	default:
		t.render(top, decoded)
	}
}

func (t *Tracker) handleBirth(state *nodeState, device string, decoded *sparkplug.Decoded) {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := state.aliasToName
	if device != "" {
		m, ok := state.deviceAlias[device]
		if !ok {
			m = make(map[uint64]string)
			state.deviceAlias[device] = m
		}
		target = m
	}
	for _, m := range decoded.Metrics {
		if m.HasAlias && m.Name != "" {
			target[m.Alias] = m.Name
		}
		if m.Name == "bdSeq" {
			if v, ok := m.Value.(uint64); ok {
				state.bdSeq = v
				state.hasBdSeq = true
			} else if v, ok := m.Value.(int64); ok {
				state.bdSeq = uint64(v)
				state.hasBdSeq = true
			}
		}
	}
}

// resolveAliases fills in Name for every metric that arrived with only an
// Alias, using the lookup table built from the matching birth message.
// Metrics whose alias has no known mapping are dropped with a warning
// (spec §4.8: "stale aliases log a warning and drop the metric").
func (t *Tracker) resolveAliases(state *nodeState, device string, decoded *sparkplug.Decoded) {
	t.mu.Lock()
	lookup := state.aliasToName
	if device != "" {
		lookup = state.deviceAlias[device]
	}
	t.mu.Unlock()

	kept := decoded.Metrics[:0]
	for _, m := range decoded.Metrics {
		if m.Name == "" && m.HasAlias {
			name, ok := lookup[m.Alias]
			if !ok {
				t.log.Warnf("stale sparkplug alias %d for device %q, dropping metric", m.Alias, device)
				continue
			}
			m.Name = name
		}
		kept = append(kept, m)
	}
	decoded.Metrics = kept
}

func (t *Tracker) handleDeath(state *nodeState, top sparkplug.Topic, decoded *sparkplug.Decoded) {
	t.mu.Lock()
	bdSeq, hasBdSeq := state.bdSeq, state.hasBdSeq
	t.mu.Unlock()

	label := string(top.MessageType)
	if top.HasDevice {
		label = fmt.Sprintf("%s device=%s", label, top.Device)
	}
	if hasBdSeq {
		fmt.Fprintf(t.out, "%s group=%s edge=%s bdSeq=%d\n", label, top.Group, top.EdgeNode, bdSeq)
	} else {
		fmt.Fprintf(t.out, "%s group=%s edge=%s bdSeq=unknown\n", label, top.Group, top.EdgeNode)
	}
}

func (t *Tracker) render(top sparkplug.Topic, decoded *sparkplug.Decoded) {
	label := string(top.MessageType)
	if top.HasDevice {
		label = fmt.Sprintf("%s device=%s", label, top.Device)
	}
	fmt.Fprintf(t.out, "%s group=%s edge=%s\n", label, top.Group, top.EdgeNode)

	metrics := append([]sparkplug.Metric{}, decoded.Metrics...)
	sort.SliceStable(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	for _, m := range metrics {
		fmt.Fprintf(t.out, "  %s = %v\n", m.Name, m.Value)
	}
}

func (t *Tracker) renderSTATE(top sparkplug.Topic, body []byte) {
	fmt.Fprintf(t.out, "STATE host=%s payload=%s\n", top.EdgeNode, string(body))
}
