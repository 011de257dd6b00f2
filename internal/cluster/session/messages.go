package session

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// Command 控制器接受的控制消息，只有 *CreateSession 和 *Relay 两种
type Command interface {
	isCommand()
}

// CreateSession 必须是控制器处理的第一条消息。
// 只能通过 NewClientSession / NewServerSession 构造，角色在构造时确定。
type CreateSession struct {
	Role          cluster.Role
	Remote        cluster.PeerAddress // 仅 Client
	CorrelationID string              // 仅 Server
	Outbound      transport.Outbound  // 仅 Server，传输层已建立的发送通道
}

// Relay 转发一帧到对端；以 Request 方式发送时回复 *RelayResult
type Relay struct {
	Envelope *clusterpb.Envelope
}

type RelayResult struct {
	Err error
}

func (*CreateSession) isCommand() {}
func (*Relay) isCommand()         {}

// NewClientSession 主动连接 remote
func NewClientSession(remote cluster.PeerAddress) *CreateSession {
	return &CreateSession{Role: cluster.RoleClient, Remote: remote}
}

// NewServerSession 接入对端发起的流，outbound 由传输层提供
func NewServerSession(correlationID string, outbound transport.Outbound) *CreateSession {
	return &CreateSession{Role: cluster.RoleServer, CorrelationID: correlationID, Outbound: outbound}
}

func NewRelay(kind string, data []byte) *Relay {
	return &Relay{Envelope: clusterpb.NewPayload(kind, data)}
}

// Describe 查询控制器当前状态，回复 *Info
type Describe struct{}

type Info struct {
	ID     cluster.SessionID
	Role   cluster.Role
	Remote cluster.PeerAddress
	State  cluster.SessionState
}

// 以下消息由控制器发给父 actor

// SessionConnected 对端地址已知：Client 握手完成，或 Server 收到 Connect 帧
type SessionConnected struct {
	SessionID cluster.SessionID
	Role      cluster.Role
	Remote    cluster.PeerAddress
	PID       *actor.PID
}

// EnvelopeReceived 收到应用消息
type EnvelopeReceived struct {
	SessionID cluster.SessionID
	From      cluster.PeerAddress
	Payload   *clusterpb.Payload
}

// SessionDisconnected 入站流结束，Err 为 nil 表示对端正常关闭
type SessionDisconnected struct {
	SessionID cluster.SessionID
	Role      cluster.Role
	Remote    cluster.PeerAddress
	PID       *actor.PID
	Err       error
}

// 监听器投递到控制器信箱的入站事件
type inboundFrame struct {
	env *clusterpb.Envelope
}

type inboundClosed struct {
	err error
}
