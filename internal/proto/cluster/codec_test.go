package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestConnectEnvelopeWireLayout(t *testing.T) {
	data, err := Marshal(NewConnect("10.0.0.1", 9090))
	require.NoError(t, err)

	// Envelope.connect_msg(1) -> ConnectRpcMessage.server_address(1) -> host(1), port(2)
	num, typ, n := protowire.ConsumeTag(data)
	require.Greater(t, n, 0)
	assert.Equal(t, protowire.Number(1), num)
	assert.Equal(t, protowire.BytesType, typ)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	c := decoded.GetConnect()
	require.NotNil(t, c)
	assert.Equal(t, "10.0.0.1", c.Host)
	assert.Equal(t, int32(9090), c.Port)
	assert.Nil(t, decoded.GetPayload())
}

func TestPayloadEnvelopeKeepsBytes(t *testing.T) {
	data, err := Marshal(NewPayload("rule.event", []byte{0x00, 0xff, 0x10}))
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	p := decoded.GetPayload()
	require.NotNil(t, p)
	assert.Equal(t, "rule.event", p.Kind)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, p.Data)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	data, err := Marshal(NewPayload("k", []byte("v")))
	require.NoError(t, err)

	data = protowire.AppendTag(data, 15, protowire.VarintType)
	data = protowire.AppendVarint(data, 42)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "k", decoded.GetPayload().Kind)
}

func TestMarshalRejectsEmptyEnvelope(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
	_, err = Marshal(&Envelope{})
	assert.ErrorIs(t, err, ErrEmptyEnvelope)

	_, err = Unmarshal(nil)
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestUnmarshalTruncated(t *testing.T) {
	data, err := Marshal(NewConnect("host", 1))
	require.NoError(t, err)

	_, err = Unmarshal(data[:len(data)-2])
	assert.Error(t, err)
}

func TestGRPCCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)

	data, err := codec.Marshal(NewPayload("k", []byte("v")))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, codec.Unmarshal(data, &env))
	assert.Equal(t, "k", env.GetPayload().Kind)

	_, err = codec.Marshal("not an envelope")
	assert.Error(t, err)
}

func TestEnvelopeString(t *testing.T) {
	assert.Equal(t, "Connect{h:1}", NewConnect("h", 1).String())
	assert.Equal(t, "Payload{kind=k, 2 bytes}", NewPayload("k", []byte("ab")).String())
	var nilEnv *Envelope
	assert.Equal(t, "<nil>", nilEnv.String())
	assert.Nil(t, nilEnv.GetConnect())
}
