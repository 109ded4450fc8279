// Package sparkplug decodes Sparkplug-B binary payloads over the fixed
// embedded schema from Eclipse Sparkplug 3.0.0, and fans a decoded payload
// out into its individual metrics for SQL persistence and network-mode
// console rendering.
package sparkplug

import (
	_ "embed"
	"sync"

	"github.com/jhump/protoreflect/desc"

	"github.com/kaans/mqtli/internal/protobuf"
)

//go:embed sparkplug_b.proto
var schemaSource string

const payloadMessageName = "org.eclipse.tahu.protobuf.Payload"

var (
	poolOnce sync.Once
	pool     *protobuf.Pool
	poolErr  error
	payloadMD *desc.MessageDescriptor
)

func payloadDescriptor() (*desc.MessageDescriptor, error) {
	poolOnce.Do(func() {
		pool, poolErr = protobuf.LoadPoolFromSource("sparkplug_b.proto", schemaSource)
		if poolErr != nil {
			return
		}
		payloadMD, poolErr = pool.ResolveMessage(payloadMessageName)
	})
	return payloadMD, poolErr
}
