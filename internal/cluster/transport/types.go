package transport

import (
	"context"
	"errors"

	"github.com/9triver/clusterrpc/internal/cluster"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

var (
	// ErrConnectTimeout 客户端建连超过等待上限
	ErrConnectTimeout = errors.New("transport: connect timeout")
	// ErrStreamClosed 在已关闭的流上发送
	ErrStreamClosed = errors.New("transport: stream closed")
)

// Inbound 接收对端发来的帧。由传输层自己的 I/O goroutine 调用，实现方不得在回调中直接改动会话状态。
type Inbound interface {
	OnMessage(env *clusterpb.Envelope)
	OnError(err error)
	OnCompleted()
}

// Outbound 会话的发送通道
type Outbound interface {
	Send(env *clusterpb.Envelope) error
	Close() error
}

// Transport 主动建连：打开到 addr 的双向流，入站帧交给 inbound，返回出站通道。
type Transport interface {
	OpenChannel(ctx context.Context, addr cluster.PeerAddress, inbound Inbound) (Outbound, error)
}

// Acceptor 被动接入：传输层收到新流时调用，拿到该流对应的入站处理器。
type Acceptor interface {
	Accept(ctx context.Context, outbound Outbound) (Inbound, error)
}

// Server 监听并接入对端会话
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Addr() string
}
