// Package config loads and validates the MQTli configuration tree of spec
// §6: a YAML file (broker, log_level, topics[], mode, sql_storage) merged
// with CLI flags and environment variables under CLI > ENV > YAML > defaults
// precedence. This package is the "external collaborator" spec.md §1 scopes
// out of the core; it exists because a CLI binary needs one, but its only
// job is producing a validated Config for internal/app to consume.
package config

import "time"

// Config is the fully resolved, validated configuration tree.
type Config struct {
	Broker     Broker      `yaml:"broker"`
	LogLevel   string      `yaml:"log_level"`
	Topics     []Topic     `yaml:"topics"`
	Mode       Mode        `yaml:"mode,omitempty"`
	SQLStorage *SQLStorage `yaml:"sql_storage,omitempty"`

	// Sparkplug network mode options (spec §4.8), set when Mode == ModeSparkplug.
	// CLI-only: no YAML key, see SparkplugOptions.
	Sparkplug SparkplugOptions `yaml:"-"`
}

// Mode selects the CLI run mode of spec §6: "" (none) means multi-topic.
type Mode string

const (
	ModeDefault   Mode = ""
	ModePublish   Mode = "publish"
	ModeSubscribe Mode = "subscribe"
	ModeSparkplug Mode = "sparkplug"
)

// Broker is the broker-connection half of the config tree; every field here
// is CLI/ENV-addressable per spec §6.
type Broker struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Protocol   string        `yaml:"protocol"` // "tcp" | "websocket"
	ClientID   string        `yaml:"client_id,omitempty"`
	MQTTVer    string        `yaml:"mqtt_version"` // "v311" | "v5"
	KeepAlive  time.Duration `yaml:"keep_alive"`
	Username   string        `yaml:"username,omitempty"`
	Password   string        `yaml:"password,omitempty"`
	UseTLS     bool          `yaml:"use_tls,omitempty"`
	CAFile     string        `yaml:"ca_file,omitempty"`
	ClientCert string        `yaml:"client_cert,omitempty"`
	ClientKey  string        `yaml:"client_key,omitempty"`
	TLSVersion string        `yaml:"tls_version,omitempty"` // "all" | "v12" | "v13"
	Will       Will          `yaml:"last_will,omitempty"`
}

// Will mirrors spec §3's WillConfig, addressable via --last-will-* flags.
type Will struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	Payload  string `yaml:"payload,omitempty"`
	QoS      int    `yaml:"qos,omitempty"`
	Retained bool   `yaml:"retained,omitempty"`
}

// SparkplugOptions covers the sparkplug-mode-only flags of spec §6; these
// are CLI-only (no YAML key names them), set by cmd/mqtli's sp subcommand.
type SparkplugOptions struct {
	QoS                   int
	IncludeGroups         []string
	IncludeTopicsFromFile string
}

// SQLStorage is the process-wide sql_storage YAML key (spec §3).
type SQLStorage struct {
	Driver           string `yaml:"driver"` // "sqlite" | "mysql" | "mariadb" | "postgresql"
	ConnectionString string `yaml:"connection_string"`
}

// Topic is one TopicEntry (spec §3); YAML-only, not CLI/ENV-addressable.
type Topic struct {
	TopicPattern string     `yaml:"topic_pattern"`
	Payload      FormatSpec `yaml:"payload"`
	Subscription *Subscription `yaml:"subscription,omitempty"`
	Publish      *Publish      `yaml:"publish,omitempty"`
}

// FormatSpec is spec §3's FormatSpec.
type FormatSpec struct {
	Kind            string `yaml:"kind"`
	RawAs           string `yaml:"raw_as,omitempty"`
	DefinitionPath  string `yaml:"definition_path,omitempty"`
	MessageName     string `yaml:"message_name,omitempty"`
}

// Subscription is TopicEntry.subscription.
type Subscription struct {
	Enabled bool     `yaml:"enabled"`
	QoS     int      `yaml:"qos"`
	Outputs []Output `yaml:"outputs"`
	Filters []Filter `yaml:"filters"`
}

// Output is one OutputTarget (spec §3).
type Output struct {
	Type string `yaml:"type"` // console|file|topic|sql|null

	Format *FormatSpec `yaml:"format,omitempty"` // console/file/topic

	Path      string `yaml:"path,omitempty"`
	Overwrite bool   `yaml:"overwrite,omitempty"`
	Prepend   string `yaml:"prepend,omitempty"`
	Append    string `yaml:"append,omitempty"`

	Topic  string `yaml:"topic,omitempty"`
	QoS    int    `yaml:"qos,omitempty"`
	Retain bool   `yaml:"retain,omitempty"`

	InsertStatement string `yaml:"insert_statement,omitempty"`
}

// Publish is TopicEntry.publish.
type Publish struct {
	Enabled  bool          `yaml:"enabled"`
	QoS      int           `yaml:"qos"`
	Retain   bool          `yaml:"retain"`
	Input    PublishInput  `yaml:"input"`
	Triggers []TriggerSpec `yaml:"triggers"`
	Filters  []Filter      `yaml:"filters"`
}

// PublishInput is spec §3's PublishInput variant.
type PublishInput struct {
	Type    string `yaml:"type"` // text|hex|base64|json|yaml|raw|null
	Content string `yaml:"content,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// TriggerSpec is spec §3's Periodic TriggerSpec.
type TriggerSpec struct {
	IntervalMs     int64 `yaml:"interval_ms"`
	InitialDelayMs int64 `yaml:"initial_delay_ms"`
	Count          *int  `yaml:"count,omitempty"`
}

// Filter is one Filter variant (spec §3).
type Filter struct {
	Type string `yaml:"type"` // extract_json|to_upper|to_lower|prepend|append|to_text|to_json

	JSONPath string `yaml:"jsonpath,omitempty"`
	Content  string `yaml:"content,omitempty"`
}
