package manager

import (
	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// 发给管理 actor 的内部消息

// sendRequest 找到或建立到 Remote 的会话后转发；回复由控制器直接发给请求方
type sendRequest struct {
	Remote   cluster.PeerAddress
	Envelope *clusterpb.Envelope
}

// dial 确保到 Remote 的客户端会话存在
type dial struct {
	Remote cluster.PeerAddress
}

// spawnServer 为传输层接入的流创建服务端会话
type spawnServer struct {
	CorrelationID string
	Outbound      transport.Outbound
}

// dropServer 接入方已放弃等待，停止对应会话
type dropServer struct {
	CorrelationID string
}

// disconnect 停止到 Remote 的全部会话，回复停止的数量
type disconnect struct {
	Remote cluster.PeerAddress
}

// listSessions 回复 []*actor.PID
type listSessions struct{}
