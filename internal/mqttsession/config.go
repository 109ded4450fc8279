// Package mqttsession implements the MQTT Session contract of spec §4.6:
// connect/subscribe/publish/disconnect over paho.mqtt.golang, with TLS,
// WebSocket transport, Last-Will, and reconnect-with-backoff.
package mqttsession

import "time"

// Protocol selects the underlying transport, per spec §6's --protocol flag.
type Protocol int

const (
	ProtocolTCP Protocol = iota
	ProtocolWebSocket
)

// Version selects the MQTT protocol version, per spec §6's --mqtt-version
// flag. VersionV5 is passed to paho.mqtt.golang as protocol version 5; that
// client implements MQTT 3.1/3.1.1 only and does not speak v5.
type Version int

const (
	VersionV311 Version = iota
	VersionV5
)

// TLSVersion restricts the negotiated TLS version floor, per spec §6's
// --tls-version flag.
type TLSVersion int

const (
	TLSAll TLSVersion = iota
	TLS12
	TLS13
)

// TLSConfig mirrors the teacher's lib/util/tls Config shape, generalized to
// a single client certificate (spec §4.6: "optional client certificate +
// PKCS#8 key") instead of a list.
type TLSConfig struct {
	Enabled            bool
	CAFile             string
	ClientCertFile     string
	ClientKeyFile      string
	InsecureSkipVerify bool
	MinVersion         TLSVersion
}

// WillConfig mirrors the teacher's internal/mqttconf Will shape.
type WillConfig struct {
	Enabled  bool
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

// Config is everything needed to dial and maintain one MQTT session.
type Config struct {
	Host     string
	Port     int
	Protocol Protocol
	Version  Version

	ClientID string // empty means generate one via google/uuid

	Username string
	Password string

	KeepAlive time.Duration // must be >=5s, validated by internal/config

	TLS  TLSConfig
	Will WillConfig

	ConnectTimeout time.Duration

	// OutboundQueueSize bounds the number of publishes buffered while
	// disconnected/reconnecting, per spec §4.6 ("a sane default,
	// implementer-chosen").
	OutboundQueueSize int
}

// DefaultOutboundQueueSize is the supplemented-feature default named in
// SPEC_FULL.md.
const DefaultOutboundQueueSize = 256

// DefaultConnectTimeout bounds the initial CONNECT handshake.
const DefaultConnectTimeout = 10 * time.Second
