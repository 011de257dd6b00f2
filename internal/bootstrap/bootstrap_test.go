package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/config"
)

func startNode(t *testing.T, kind string, peers ...string) *Node {
	t.Helper()
	cfg := &config.Config{
		Host:           "127.0.0.1",
		PeerListenAddr: "127.0.0.1:0",
		DataDir:        filepath.Join(t.TempDir(), "data"),
		Transport:      config.TransportConfig{Kind: kind},
		InitialPeers:   peers,
	}
	config.ApplyDefaults(cfg)

	node, err := Initialize(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { node.Stop() })
	require.NoError(t, node.Start(context.Background()))
	return node
}

func advertised(t *testing.T, node *Node) cluster.PeerAddress {
	t.Helper()
	addr, err := node.Discovery.CurrentAdvertisedAddress()
	require.NoError(t, err)
	require.NotZero(t, addr.Port)
	return addr
}

func testNodesExchange(t *testing.T, kind string) {
	a := startNode(t, kind)
	b := startNode(t, kind)
	addrA, addrB := advertised(t, a), advertised(t, b)
	ctx := context.Background()

	require.NoError(t, a.SessionManager.Send(ctx, addrB, "rule", []byte("r1")))

	// B 收到握手后，把 A 记为该服务端会话的对端
	assert.Eventually(t, func() bool {
		infos, err := b.SessionManager.Sessions(ctx)
		return err == nil && len(infos) == 1 && infos[0].Remote == addrA && infos[0].Role == cluster.RoleServer
	}, 3*time.Second, 10*time.Millisecond)

	// B 回发复用入站会话
	require.NoError(t, b.SessionManager.Send(ctx, addrA, "reply", []byte("ok")))
	infos, err := b.SessionManager.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	n, err := a.SessionManager.Disconnect(ctx, addrB)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Eventually(t, func() bool {
		entries, err := b.Journal.Query(ctx, &journal.QueryOptions{Event: journal.EventClosed})
		return err == nil && len(entries) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNodes_ExchangeOverGRPC(t *testing.T) {
	testNodesExchange(t, config.TransportGRPC)
}

func TestNodes_ExchangeOverWebSocket(t *testing.T) {
	testNodesExchange(t, config.TransportWebSocket)
}

// 监听 :0 的节点拨号初始对端时，握手里已是回填后的端口
func TestNode_InitialPeersHandshakeUsesListenedPort(t *testing.T) {
	a := startNode(t, config.TransportGRPC)
	addrA := advertised(t, a)

	b := startNode(t, config.TransportGRPC, addrA.String())
	addrB := advertised(t, b)

	ctx := context.Background()
	assert.Eventually(t, func() bool {
		infos, err := a.SessionManager.Sessions(ctx)
		return err == nil && len(infos) == 1 && infos[0].Remote == addrB
	}, 3*time.Second, 10*time.Millisecond)
}
