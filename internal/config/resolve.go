package config

import (
	"strconv"
	"time"
)

// EnvLookup abstracts os.LookupEnv so tests can inject a fake environment.
type EnvLookup func(key string) (string, bool)

// envNames mirrors spec §6's flag->ENV name table; only broker and log_level
// fields are CLI/ENV-addressable, topics[] are YAML-only.
var envNames = struct {
	host, port, protocol, clientID, mqttVersion, keepAlive    string
	username, password                                        string
	useTLS, caFile, clientCert, clientKey, tlsVersion          string
	willTopic, willPayload, willQoS, willRetain                string
	logLevel                                                   string
}{
	host: "BROKER_HOST", port: "BROKER_PORT", protocol: "BROKER_PROTOCOL",
	clientID: "BROKER_CLIENT_ID", mqttVersion: "BROKER_MQTT_VERSION", keepAlive: "BROKER_KEEP_ALIVE",
	username: "BROKER_USERNAME", password: "BROKER_PASSWORD",
	useTLS: "BROKER_USE_TLS", caFile: "BROKER_CA_FILE", clientCert: "BROKER_CLIENT_CERT",
	clientKey: "BROKER_CLIENT_KEY", tlsVersion: "BROKER_TLS_VERSION",
	willTopic: "BROKER_LAST_WILL_TOPIC", willPayload: "BROKER_LAST_WILL_PAYLOAD",
	willQoS: "BROKER_LAST_WILL_QOS", willRetain: "BROKER_LAST_WILL_RETAIN",
	logLevel: "LOG_LEVEL",
}

// ApplyEnv overlays environment variables onto cfg, per spec §6's ENV-
// mirrors-flags table. Unset or unparsable values are left untouched.
func ApplyEnv(cfg Config, lookup EnvLookup) Config {
	if v, ok := lookup(envNames.host); ok {
		cfg.Broker.Host = v
	}
	if v, ok := lookup(envNames.port); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Port = n
		}
	}
	if v, ok := lookup(envNames.protocol); ok {
		cfg.Broker.Protocol = v
	}
	if v, ok := lookup(envNames.clientID); ok {
		cfg.Broker.ClientID = v
	}
	if v, ok := lookup(envNames.mqttVersion); ok {
		cfg.Broker.MQTTVer = v
	}
	if v, ok := lookup(envNames.keepAlive); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Broker.KeepAlive = d
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.Broker.KeepAlive = time.Duration(n) * time.Second
		}
	}
	if v, ok := lookup(envNames.username); ok {
		cfg.Broker.Username = v
	}
	if v, ok := lookup(envNames.password); ok {
		cfg.Broker.Password = v
	}
	if v, ok := lookup(envNames.useTLS); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Broker.UseTLS = b
		}
	}
	if v, ok := lookup(envNames.caFile); ok {
		cfg.Broker.CAFile = v
	}
	if v, ok := lookup(envNames.clientCert); ok {
		cfg.Broker.ClientCert = v
	}
	if v, ok := lookup(envNames.clientKey); ok {
		cfg.Broker.ClientKey = v
	}
	if v, ok := lookup(envNames.tlsVersion); ok {
		cfg.Broker.TLSVersion = v
	}
	if v, ok := lookup(envNames.willTopic); ok {
		cfg.Broker.Will.Topic = v
	}
	if v, ok := lookup(envNames.willPayload); ok {
		cfg.Broker.Will.Payload = v
	}
	if v, ok := lookup(envNames.willQoS); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Will.QoS = n
		}
	}
	if v, ok := lookup(envNames.willRetain); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Broker.Will.Retained = b
		}
	}
	if v, ok := lookup(envNames.logLevel); ok {
		cfg.LogLevel = v
	}
	return cfg
}

// Overrides carries the CLI-flag layer of the precedence chain; a nil
// pointer means "flag not set on this invocation" so it doesn't shadow ENV
// or YAML, matching spec §6's "CLI > ENV > YAML > defaults".
type Overrides struct {
	Host        *string
	Port        *int
	Protocol    *string
	ClientID    *string
	MQTTVersion *string
	KeepAlive   *time.Duration
	Username    *string
	Password    *string
	UseTLS      *bool
	CAFile      *string
	ClientCert  *string
	ClientKey   *string
	TLSVersion  *string
	WillTopic   *string
	WillPayload *string
	WillQoS     *int
	WillRetain  *bool
	LogLevel    *string
}

// ApplyCLI overlays explicitly-set CLI flags onto cfg, the top of the
// precedence chain.
func ApplyCLI(cfg Config, o Overrides) Config {
	if o.Host != nil {
		cfg.Broker.Host = *o.Host
	}
	if o.Port != nil {
		cfg.Broker.Port = *o.Port
	}
	if o.Protocol != nil {
		cfg.Broker.Protocol = *o.Protocol
	}
	if o.ClientID != nil {
		cfg.Broker.ClientID = *o.ClientID
	}
	if o.MQTTVersion != nil {
		cfg.Broker.MQTTVer = *o.MQTTVersion
	}
	if o.KeepAlive != nil {
		cfg.Broker.KeepAlive = *o.KeepAlive
	}
	if o.Username != nil {
		cfg.Broker.Username = *o.Username
	}
	if o.Password != nil {
		cfg.Broker.Password = *o.Password
	}
	if o.UseTLS != nil {
		cfg.Broker.UseTLS = *o.UseTLS
	}
	if o.CAFile != nil {
		cfg.Broker.CAFile = *o.CAFile
	}
	if o.ClientCert != nil {
		cfg.Broker.ClientCert = *o.ClientCert
	}
	if o.ClientKey != nil {
		cfg.Broker.ClientKey = *o.ClientKey
	}
	if o.TLSVersion != nil {
		cfg.Broker.TLSVersion = *o.TLSVersion
	}
	if o.WillTopic != nil {
		cfg.Broker.Will.Topic = *o.WillTopic
		cfg.Broker.Will.Enabled = true
	}
	if o.WillPayload != nil {
		cfg.Broker.Will.Payload = *o.WillPayload
	}
	if o.WillQoS != nil {
		cfg.Broker.Will.QoS = *o.WillQoS
	}
	if o.WillRetain != nil {
		cfg.Broker.Will.Retained = *o.WillRetain
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	return cfg
}
