// Package topic implements the topic engine of spec §4.5: per-topic
// subscription matching, inbound dispatch through the filter pipeline and
// output fan-out, and outbound publish assembly driven by the trigger
// scheduler.
package topic

import (
	"context"
	"time"

	"github.com/kaans/mqtli/internal/filter"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/protobuf"
	"github.com/kaans/mqtli/internal/trigger"
)

// FormatSpec is the payload format declared on a TopicEntry or Output, per
// spec §3. ProtoPool is resolved and cached by Engine.AddEntry when Kind is
// Protobuf; it is independent of the owning TopicEntry's own format, since
// an Output may declare its own protobuf schema.
type FormatSpec struct {
	Kind                payload.Kind
	RawAs               payload.RawAs
	ProtoDefinitionPath string
	ProtoMessageName    string
	ProtoPool           *protobuf.Pool
}

// Entry is one configured TopicEntry (spec §3).
type Entry struct {
	Pattern      string
	Format       FormatSpec
	Subscription *SubscriptionConfig
	Publish      *PublishConfig
}

// SubscriptionConfig is TopicEntry.subscription (spec §3).
type SubscriptionConfig struct {
	Enabled bool
	QoS     byte
	Outputs []Output
	Filters filter.Chain
}

// PublishConfig is TopicEntry.publish (spec §3).
type PublishConfig struct {
	Enabled  bool
	QoS      byte
	Retain   bool
	Input    PublishInput
	Triggers []trigger.Spec
	Filters  filter.Chain
}

// InputKind enumerates the PublishInput variants of spec §3.
type InputKind int

const (
	InputText InputKind = iota
	InputHex
	InputBase64
	InputJSON
	InputYAML
	InputRaw
	InputNull
)

// PublishInput is the variant of spec §3: Text/Hex/Base64/Json/Yaml accept
// either inline Content or a file Path (Path wins if both are set); Raw takes
// the bytes of Path, or of Content when no Path is set; Null carries neither.
type PublishInput struct {
	Kind    InputKind
	Content string
	HasPath bool
	Path    string
}

// OutputKind enumerates the OutputTarget variants of spec §3.
type OutputKind int

const (
	OutputConsole OutputKind = iota
	OutputFile
	OutputTopic
	OutputSql
	OutputNull
)

// Output is one OutputTarget entry on a subscription (spec §3).
type Output struct {
	Kind   OutputKind
	Format FormatSpec // used by Console/File/Topic; ignored by Sql/Null

	FilePath      string
	FileOverwrite bool
	FilePrepend   string
	FileAppend    string

	TopicName   string
	TopicQoS    byte
	TopicRetain bool

	InsertStatement string
}

// Publisher is the outbound half of the MQTT Session contract (spec §4.6)
// that the engine depends on.
type Publisher interface {
	Publish(ctx context.Context, topicName string, qos byte, retain bool, body []byte) error
}

// SqlSink is the process-wide SQL placeholder expansion contract of spec
// §4.7 that the engine dispatches matching messages to.
type SqlSink interface {
	Execute(ctx context.Context, insertStatement, topicName string, p payload.Payload, qos byte, retain bool, now time.Time) error
}

// FileReader abstracts reading file-backed PublishInput content so tests can
// stub it; production wiring uses os.ReadFile.
type FileReader func(path string) ([]byte, error)
