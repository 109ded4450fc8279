package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecedenceCLIOverEnvOverYAML(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "yaml-host"
	cfg.Broker.Port = 1111

	env := map[string]string{"BROKER_HOST": "env-host", "BROKER_PORT": "2222"}
	cfg = ApplyEnv(cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	assert.Equal(t, "env-host", cfg.Broker.Host)
	assert.Equal(t, 2222, cfg.Broker.Port)

	cliHost := "cli-host"
	cfg = ApplyCLI(cfg, Overrides{Host: &cliHost})
	assert.Equal(t, "cli-host", cfg.Broker.Host, "CLI must win over ENV and YAML")
	assert.Equal(t, 2222, cfg.Broker.Port, "ENV value survives when CLI doesn't override it")
}

func TestApplyEnvLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := Defaults()
	cfg = ApplyEnv(cfg, func(string) (string, bool) { return "", false })
	assert.Equal(t, Defaults(), cfg)
}

func TestApplyCLIWillTopicEnablesWill(t *testing.T) {
	cfg := Defaults()
	topic := "clients/lwt"
	cfg = ApplyCLI(cfg, Overrides{WillTopic: &topic})
	assert.True(t, cfg.Broker.Will.Enabled)
	assert.Equal(t, "clients/lwt", cfg.Broker.Will.Topic)
}

func TestValidateRejectsShortKeepAlive(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Broker.KeepAlive = 2 * time.Second
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keep_alive")
}

func TestValidateRejectsUsernameWithoutPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Broker.Username = "alice"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestValidateRejectsClientCertWithoutKey(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Broker.UseTLS = true
	cfg.Broker.ClientCert = "cert.pem"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_key")
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsUnknownTopicPayloadKind(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Topics = []Topic{{TopicPattern: "a/b", Payload: FormatSpec{Kind: "bogus"}}}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind")
}

func TestValidateRequiresProtobufDescriptorFields(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Topics = []Topic{{TopicPattern: "a/b", Payload: FormatSpec{Kind: "protobuf"}}}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition_path")
}

// TestValidateRejectsOutputProtobufMissingDescriptorFields covers a
// subscription output that independently declares a protobuf format: it must
// be checked at config-validation time, not just fail at Engine.AddEntry.
func TestValidateRejectsOutputProtobufMissingDescriptorFields(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.Host = "localhost"
	cfg.Topics = []Topic{{
		TopicPattern: "a/b",
		Payload:      FormatSpec{Kind: "text"},
		Subscription: &Subscription{
			Enabled: true,
			Outputs: []Output{{Type: "console", Format: &FormatSpec{Kind: "protobuf"}}},
		},
	}}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition_path")
}
