package protobuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProtoSource = `
syntax = "proto3";
package mqtli.test;

message Response {
  int32 distance = 1;
  Inner inner = 2;
  Position position = 3;
  bytes raw = 4;

  message Inner {
    string kind = 1;
  }

  enum Position {
    POSITION_UNKNOWN = 0;
    POSITION_OUTSIDE = 1;
    POSITION_INSIDE = 2;
  }
}
`

func TestLoadPoolFromSourceResolvesTopLevelMessage(t *testing.T) {
	pool, err := LoadPoolFromSource("response.proto", testProtoSource)
	require.NoError(t, err)

	md, err := pool.ResolveMessage("mqtli.test.Response")
	require.NoError(t, err)
	assert.Equal(t, "Response", md.GetName())
}

func TestLoadPoolFromSourceResolvesNestedMessage(t *testing.T) {
	pool, err := LoadPoolFromSource("response.proto", testProtoSource)
	require.NoError(t, err)

	md, err := pool.ResolveMessage("mqtli.test.Response.Inner")
	require.NoError(t, err)
	assert.Equal(t, "Inner", md.GetName())
}

func TestResolveMessageFailsForUnknownName(t *testing.T) {
	pool, err := LoadPoolFromSource("response.proto", testProtoSource)
	require.NoError(t, err)

	_, err = pool.ResolveMessage("mqtli.test.NoSuchMessage")
	require.Error(t, err)
}

func TestLoadPoolFailsOnMissingFile(t *testing.T) {
	_, err := LoadPool("/does/not/exist.proto")
	require.Error(t, err)
}

func TestLoadPoolParsesFixtureFile(t *testing.T) {
	pool, err := LoadPool("../payload/testdata/response.proto")
	require.NoError(t, err)

	md, err := pool.ResolveMessage("mqtli.test.Response")
	require.NoError(t, err)
	assert.Equal(t, "Response", md.GetName())
}
