package config

import (
	"time"

	"github.com/kaans/mqtli/internal/errs"
)

// MinKeepAlive is the floor named in spec §7 ("keep-alive <5s" is a
// ConfigError).
const MinKeepAlive = 5 * time.Second

// Validate checks cfg against spec §7's ConfigError rules: keep-alive <5s,
// username without password, client-cert without key, missing required
// fields. It returns the first violation found.
func Validate(cfg Config) error {
	if cfg.Broker.Host == "" {
		return &errs.ConfigError{Field: "broker.host", Cause: errMissing("broker.host")}
	}
	if cfg.Broker.Port <= 0 || cfg.Broker.Port > 65535 {
		return &errs.ConfigError{Field: "broker.port", Cause: errRange("broker.port", "1-65535")}
	}
	if cfg.Broker.Protocol != "tcp" && cfg.Broker.Protocol != "websocket" {
		return &errs.ConfigError{Field: "broker.protocol", Cause: errOneOf("broker.protocol", "tcp", "websocket")}
	}
	if cfg.Broker.MQTTVer != "v311" && cfg.Broker.MQTTVer != "v5" {
		return &errs.ConfigError{Field: "broker.mqtt_version", Cause: errOneOf("broker.mqtt_version", "v311", "v5")}
	}
	if cfg.Broker.KeepAlive < MinKeepAlive {
		return &errs.ConfigError{Field: "broker.keep_alive", Cause: errMinDuration("broker.keep_alive", MinKeepAlive)}
	}
	if cfg.Broker.Username != "" && cfg.Broker.Password == "" {
		return &errs.ConfigError{Field: "broker.password", Cause: errMissing("broker.password (required when broker.username is set)")}
	}
	if cfg.Broker.UseTLS {
		if cfg.Broker.ClientCert != "" && cfg.Broker.ClientKey == "" {
			return &errs.ConfigError{Field: "broker.client_key", Cause: errMissing("broker.client_key (required when broker.client_cert is set)")}
		}
		if cfg.Broker.ClientKey != "" && cfg.Broker.ClientCert == "" {
			return &errs.ConfigError{Field: "broker.client_cert", Cause: errMissing("broker.client_cert (required when broker.client_key is set)")}
		}
		if cfg.Broker.TLSVersion != "" && cfg.Broker.TLSVersion != "all" && cfg.Broker.TLSVersion != "v12" && cfg.Broker.TLSVersion != "v13" {
			return &errs.ConfigError{Field: "broker.tls_version", Cause: errOneOf("broker.tls_version", "all", "v12", "v13")}
		}
	}
	if cfg.Broker.Will.Enabled && cfg.Broker.Will.Topic == "" {
		return &errs.ConfigError{Field: "broker.last_will.topic", Cause: errMissing("broker.last_will.topic (required when last-will is enabled)")}
	}

	if cfg.SQLStorage != nil {
		switch cfg.SQLStorage.Driver {
		case "sqlite", "mysql", "mariadb", "postgresql":
		default:
			return &errs.ConfigError{Field: "sql_storage.driver", Cause: errOneOf("sql_storage.driver", "sqlite", "mysql", "mariadb", "postgresql")}
		}
		if cfg.SQLStorage.ConnectionString == "" {
			return &errs.ConfigError{Field: "sql_storage.connection_string", Cause: errMissing("sql_storage.connection_string")}
		}
	}

	for i, t := range cfg.Topics {
		if err := validateTopic(i, t); err != nil {
			return err
		}
	}

	return nil
}

func validateTopic(i int, t Topic) error {
	field := func(name string) string { return fieldPath(i, name) }

	if t.TopicPattern == "" {
		return &errs.ConfigError{Field: field("topic_pattern"), Cause: errMissing(field("topic_pattern"))}
	}
	if err := validateFormat(field("payload"), t.Payload); err != nil {
		return err
	}
	if t.Subscription != nil && t.Subscription.Enabled {
		for oi, out := range t.Subscription.Outputs {
			if err := validateOutput(field("subscription.outputs"), oi, out); err != nil {
				return err
			}
		}
	}
	if t.Publish != nil && t.Publish.Enabled {
		for _, tr := range t.Publish.Triggers {
			if tr.IntervalMs < 1 {
				return &errs.ConfigError{Field: field("publish.triggers.interval_ms"), Cause: errMinInt(field("publish.triggers.interval_ms"), 1)}
			}
			if tr.InitialDelayMs < 0 {
				return &errs.ConfigError{Field: field("publish.triggers.initial_delay_ms"), Cause: errMinInt(field("publish.triggers.initial_delay_ms"), 0)}
			}
		}
	}
	return nil
}

func validateFormat(field string, f FormatSpec) error {
	switch f.Kind {
	case "raw", "text", "hex", "base64", "json", "yaml", "protobuf", "sparkplug":
	default:
		return &errs.ConfigError{Field: field + ".kind", Cause: errOneOf(field+".kind", "raw", "text", "hex", "base64", "json", "yaml", "protobuf", "sparkplug")}
	}
	if f.Kind == "protobuf" {
		if f.DefinitionPath == "" || f.MessageName == "" {
			return &errs.ConfigError{Field: field, Cause: errMissing(field + ".definition_path/.message_name (required for protobuf payloads)")}
		}
	}
	return nil
}

func validateOutput(field string, i int, out Output) error {
	p := fieldIndex(field, i)
	switch out.Type {
	case "console", "file", "topic", "sql", "null":
	default:
		return &errs.ConfigError{Field: p + ".type", Cause: errOneOf(p+".type", "console", "file", "topic", "sql", "null")}
	}
	if out.Type == "file" && out.Path == "" {
		return &errs.ConfigError{Field: p + ".path", Cause: errMissing(p + ".path")}
	}
	if out.Type == "topic" && out.Topic == "" {
		return &errs.ConfigError{Field: p + ".topic", Cause: errMissing(p + ".topic")}
	}
	if out.Type == "sql" && out.InsertStatement == "" {
		return &errs.ConfigError{Field: p + ".insert_statement", Cause: errMissing(p + ".insert_statement")}
	}
	if out.Format != nil {
		if err := validateFormat(p+".format", *out.Format); err != nil {
			return err
		}
	}
	return nil
}
