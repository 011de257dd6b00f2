package session

import (
	"github.com/asynkron/protoactor-go/actor"

	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// Listener 把传输层 goroutine 上的入站事件投递到控制器信箱，
// 控制器状态只在自己的信箱处理中被修改。
type Listener struct {
	sender actor.SenderContext
	self   *actor.PID
}

func NewListener(sender actor.SenderContext, self *actor.PID) *Listener {
	return &Listener{sender: sender, self: self}
}

func (l *Listener) PID() *actor.PID { return l.self }

func (l *Listener) OnMessage(env *clusterpb.Envelope) {
	l.sender.Send(l.self, &inboundFrame{env: env})
}

func (l *Listener) OnError(err error) {
	l.sender.Send(l.self, &inboundClosed{err: err})
}

func (l *Listener) OnCompleted() {
	l.sender.Send(l.self, &inboundClosed{})
}
