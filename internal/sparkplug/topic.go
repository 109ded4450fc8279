package sparkplug

import "strings"

// MessageType enumerates the Sparkplug-B topic message types (spec §3).
type MessageType string

const (
	NBIRTH MessageType = "NBIRTH"
	NDEATH MessageType = "NDEATH"
	NDATA  MessageType = "NDATA"
	NCMD   MessageType = "NCMD"
	DBIRTH MessageType = "DBIRTH"
	DDEATH MessageType = "DDEATH"
	DDATA  MessageType = "DDATA"
	DCMD   MessageType = "DCMD"
	STATE  MessageType = "STATE"
)

// Topic is a parsed Sparkplug-B topic: spBv1.0/<group>/<msg_type>/<edge_node>[/<device>][/<metric_level>*]
type Topic struct {
	Namespace    string
	Group        string
	MessageType  MessageType
	EdgeNode     string
	Device       string
	HasDevice    bool
	MetricLevels []string
}

// ParseTopic parses a Sparkplug-B topic string. It returns ok=false for any
// topic that doesn't match the grammar. STATE topics ("spBv1.0/STATE/<host_id>")
// carry no edge node segment; they are accepted with the host_id in EdgeNode.
func ParseTopic(topic string) (Topic, bool) {
	segs := strings.Split(topic, "/")
	if len(segs) < 2 || segs[0] != "spBv1.0" {
		return Topic{}, false
	}

	if MessageType(segs[1]) == STATE {
		t := Topic{Namespace: segs[0], MessageType: STATE}
		if len(segs) >= 3 {
			t.EdgeNode = segs[2] // host_id carried here for STATE topics
		}
		return t, true
	}

	if len(segs) < 4 {
		return Topic{}, false
	}
	t := Topic{
		Namespace:   segs[0],
		Group:       segs[1],
		MessageType: MessageType(segs[2]),
		EdgeNode:    segs[3],
	}
	switch t.MessageType {
	case NBIRTH, NDEATH, NDATA, NCMD:
		t.MetricLevels = segs[4:]
	case DBIRTH, DDEATH, DDATA, DCMD:
		if len(segs) < 5 {
			return Topic{}, false
		}
		t.Device = segs[4]
		t.HasDevice = true
		t.MetricLevels = segs[5:]
	default:
		return Topic{}, false
	}
	return t, true
}

// IsEdgeNodeMessage reports whether this topic carries the normal edge-node
// message types a client subscribes to in network mode (excludes STATE).
func (t Topic) IsEdgeNodeMessage() bool {
	return t.MessageType != "" && t.MessageType != STATE
}
