package session

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"
)

// LogDroppedRelays 订阅死信，记录发往已停止控制器的 Tell。
// Request 方式的 Relay 会收到 ErrSessionClosed，这里不重复记录。返回取消订阅函数。
func LogDroppedRelays(system *actor.ActorSystem) func() {
	sub := system.EventStream.Subscribe(func(evt any) {
		dl, ok := evt.(*actor.DeadLetterEvent)
		if !ok || dl.Sender != nil {
			return
		}
		relay, ok := dl.Message.(*Relay)
		if !ok {
			return
		}
		entry := logrus.WithField("pid", dl.PID.GetId())
		if payload := relay.Envelope.GetPayload(); payload != nil {
			entry = entry.WithField("kind", payload.Kind)
		}
		entry.Warn("Relay dropped, session closed")
	})
	return func() { system.EventStream.Unsubscribe(sub) }
}
