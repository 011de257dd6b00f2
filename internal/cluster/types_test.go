package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeerAddress(t *testing.T) {
	addr, err := ParsePeerAddress("10.0.0.2:9090")
	require.NoError(t, err)
	assert.Equal(t, PeerAddress{Host: "10.0.0.2", Port: 9090}, addr)
	assert.Equal(t, "10.0.0.2:9090", addr.String())

	v6, err := ParsePeerAddress("[::1]:7000")
	require.NoError(t, err)
	assert.Equal(t, "::1", v6.Host)
	assert.Equal(t, "[::1]:7000", v6.String())

	for _, bad := range []string{"", "10.0.0.2", ":9090", "host:0", "host:70000", "host:abc"} {
		_, err := ParsePeerAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestPeerAddressIsZero(t *testing.T) {
	assert.True(t, PeerAddress{}.IsZero())
	assert.False(t, PeerAddress{Host: "a"}.IsZero())
	assert.False(t, PeerAddress{Port: 1}.IsZero())
}

func TestRoleAndStateString(t *testing.T) {
	assert.Equal(t, "client", RoleClient.String())
	assert.Equal(t, "server", RoleServer.String())
	assert.Equal(t, "unknown", Role(0).String())

	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "closed", StateClosed.String())
}

func TestNewIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewSessionID(), NewSessionID())
	c := NewCorrelationID()
	assert.Contains(t, c, "corr-")
	assert.NotEqual(t, c, NewCorrelationID())
}
