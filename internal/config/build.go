package config

import (
	"fmt"

	"github.com/kaans/mqtli/internal/filter"
	"github.com/kaans/mqtli/internal/mqttsession"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/sqlsink"
	"github.com/kaans/mqtli/internal/topic"
	"github.com/kaans/mqtli/internal/trigger"
)

// BuildSession translates cfg.Broker into an mqttsession.Config.
func BuildSession(b Broker) mqttsession.Config {
	sc := mqttsession.Config{
		Host:      b.Host,
		Port:      b.Port,
		ClientID:  b.ClientID,
		Username:  b.Username,
		Password:  b.Password,
		KeepAlive: b.KeepAlive,
	}
	if b.Protocol == "websocket" {
		sc.Protocol = mqttsession.ProtocolWebSocket
	}
	if b.MQTTVer == "v5" {
		sc.Version = mqttsession.VersionV5
	}
	sc.TLS = mqttsession.TLSConfig{
		Enabled:        b.UseTLS,
		CAFile:         b.CAFile,
		ClientCertFile: b.ClientCert,
		ClientKeyFile:  b.ClientKey,
	}
	switch b.TLSVersion {
	case "v12":
		sc.TLS.MinVersion = mqttsession.TLS12
	case "v13":
		sc.TLS.MinVersion = mqttsession.TLS13
	default:
		sc.TLS.MinVersion = mqttsession.TLSAll
	}
	sc.Will = mqttsession.WillConfig{
		Enabled:  b.Will.Enabled,
		Topic:    b.Will.Topic,
		Payload:  b.Will.Payload,
		QoS:      byte(b.Will.QoS),
		Retained: b.Will.Retained,
	}
	return sc
}

// BuildSQLStorage opens the process-wide Storage if sql_storage is
// configured; returns (nil, nil) otherwise.
func BuildSQLStorage(s *SQLStorage) (*sqlsink.Storage, error) {
	if s == nil {
		return nil, nil
	}
	var driver sqlsink.Driver
	switch s.Driver {
	case "sqlite":
		driver = sqlsink.SQLite
	case "mysql":
		driver = sqlsink.MySQL
	case "mariadb":
		driver = sqlsink.MariaDB
	case "postgresql":
		driver = sqlsink.PostgreSQL
	default:
		return nil, fmt.Errorf("unknown sql_storage.driver %q", s.Driver)
	}
	return sqlsink.Open(driver, s.ConnectionString)
}

// BuildEntries translates every configured Topic into a *topic.Entry.
func BuildEntries(topics []Topic) ([]*topic.Entry, error) {
	out := make([]*topic.Entry, 0, len(topics))
	for _, t := range topics {
		entry, err := buildEntry(t)
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", t.TopicPattern, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func buildEntry(t Topic) (*topic.Entry, error) {
	format, err := buildFormat(t.Payload)
	if err != nil {
		return nil, err
	}
	entry := &topic.Entry{Pattern: t.TopicPattern, Format: format}

	if t.Subscription != nil {
		outputs := make([]topic.Output, 0, len(t.Subscription.Outputs))
		for _, o := range t.Subscription.Outputs {
			out, err := buildOutput(o)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, out)
		}
		chain, err := buildChain(t.Subscription.Filters)
		if err != nil {
			return nil, err
		}
		entry.Subscription = &topic.SubscriptionConfig{
			Enabled: t.Subscription.Enabled,
			QoS:     byte(t.Subscription.QoS),
			Outputs: outputs,
			Filters: chain,
		}
	}

	if t.Publish != nil {
		input, err := buildInput(t.Publish.Input)
		if err != nil {
			return nil, err
		}
		chain, err := buildChain(t.Publish.Filters)
		if err != nil {
			return nil, err
		}
		specs := make([]trigger.Spec, 0, len(t.Publish.Triggers))
		for _, tr := range t.Publish.Triggers {
			spec := trigger.Spec{
				IntervalMs:     tr.IntervalMs,
				InitialDelayMs: tr.InitialDelayMs,
			}
			if tr.Count != nil {
				spec.HasCount = true
				spec.Count = int64(*tr.Count)
			}
			specs = append(specs, spec)
		}
		entry.Publish = &topic.PublishConfig{
			Enabled:  t.Publish.Enabled,
			QoS:      byte(t.Publish.QoS),
			Retain:   t.Publish.Retain,
			Input:    input,
			Triggers: specs,
			Filters:  chain,
		}
	}

	return entry, nil
}

func buildFormat(f FormatSpec) (topic.FormatSpec, error) {
	kind, err := payloadKind(f.Kind)
	if err != nil {
		return topic.FormatSpec{}, err
	}
	return topic.FormatSpec{
		Kind:                kind,
		RawAs:               rawAs(f.RawAs),
		ProtoDefinitionPath: f.DefinitionPath,
		ProtoMessageName:    f.MessageName,
	}, nil
}

func payloadKind(s string) (payload.Kind, error) {
	switch s {
	case "raw":
		return payload.Raw, nil
	case "text":
		return payload.Text, nil
	case "hex":
		return payload.Hex, nil
	case "base64":
		return payload.Base64, nil
	case "json":
		return payload.JSON, nil
	case "yaml":
		return payload.YAML, nil
	case "protobuf":
		return payload.Protobuf, nil
	case "sparkplug":
		return payload.Sparkplug, nil
	default:
		return 0, fmt.Errorf("unknown payload kind %q", s)
	}
}

func rawAs(s string) payload.RawAs {
	switch s {
	case "base64":
		return payload.RawAsBase64
	case "utf8":
		return payload.RawAsUTF8
	default:
		return payload.RawAsHex
	}
}

func buildOutput(o Output) (topic.Output, error) {
	var kind topic.OutputKind
	switch o.Type {
	case "console":
		kind = topic.OutputConsole
	case "file":
		kind = topic.OutputFile
	case "topic":
		kind = topic.OutputTopic
	case "sql":
		kind = topic.OutputSql
	case "null":
		kind = topic.OutputNull
	default:
		return topic.Output{}, fmt.Errorf("unknown output type %q", o.Type)
	}

	out := topic.Output{
		Kind:            kind,
		FilePath:        o.Path,
		FileOverwrite:   o.Overwrite,
		FilePrepend:     o.Prepend,
		FileAppend:      o.Append,
		TopicName:       o.Topic,
		TopicQoS:        byte(o.QoS),
		TopicRetain:     o.Retain,
		InsertStatement: o.InsertStatement,
	}
	if o.Format != nil {
		format, err := buildFormat(*o.Format)
		if err != nil {
			return topic.Output{}, err
		}
		out.Format = format
	}
	if out.FileAppend == "" && kind == topic.OutputFile {
		out.FileAppend = "\n"
	}
	return out, nil
}

func buildInput(in PublishInput) (topic.PublishInput, error) {
	var kind topic.InputKind
	switch in.Type {
	case "text":
		kind = topic.InputText
	case "hex":
		kind = topic.InputHex
	case "base64":
		kind = topic.InputBase64
	case "json":
		kind = topic.InputJSON
	case "yaml":
		kind = topic.InputYAML
	case "raw":
		kind = topic.InputRaw
	case "null":
		kind = topic.InputNull
	default:
		return topic.PublishInput{}, fmt.Errorf("unknown publish input type %q", in.Type)
	}
	return topic.PublishInput{
		Kind:    kind,
		Content: in.Content,
		HasPath: in.Path != "",
		Path:    in.Path,
	}, nil
}

func buildChain(filters []Filter) (filter.Chain, error) {
	built := make([]filter.Filter, 0, len(filters))
	for _, f := range filters {
		one, err := buildFilter(f)
		if err != nil {
			return filter.Chain{}, err
		}
		built = append(built, one)
	}
	return filter.NewChain(built...), nil
}

func buildFilter(f Filter) (filter.Filter, error) {
	switch f.Type {
	case "extract_json":
		return &filter.ExtractJSON{Path: f.JSONPath}, nil
	case "to_upper":
		return filter.ToUpper{}, nil
	case "to_lower":
		return filter.ToLower{}, nil
	case "prepend":
		return &filter.Prepend{Content: f.Content}, nil
	case "append":
		return &filter.Append{Content: f.Content}, nil
	case "to_text":
		return filter.ToText{}, nil
	case "to_json":
		return filter.ToJson{}, nil
	default:
		return nil, fmt.Errorf("unknown filter type %q", f.Type)
	}
}
