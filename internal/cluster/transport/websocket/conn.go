package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// Path 集群会话的 websocket 路径
const Path = "/cluster/session"

const writeWait = 5 * time.Second

// connOutbound 一条 websocket 连接的发送侧，两端共用
type connOutbound struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newConnOutbound(conn *websocket.Conn) *connOutbound {
	return &connOutbound{conn: conn}
}

func (o *connOutbound) Send(env *clusterpb.Envelope) error {
	data, err := clusterpb.Marshal(env)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return transport.ErrStreamClosed
	}
	o.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return o.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (o *connOutbound) Close() error {
	return o.closeWith(websocket.CloseNormalClosure, "")
}

func (o *connOutbound) closeWith(code int, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	msg := websocket.FormatCloseMessage(code, reason)
	if err := o.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		logrus.WithError(err).Debug("write websocket close frame")
	}
	return o.conn.Close()
}

func (o *connOutbound) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// readLoop 读帧交给 inbound，直到连接结束
func (o *connOutbound) readLoop(inbound transport.Inbound) {
	for {
		typ, data, err := o.conn.ReadMessage()
		if err != nil {
			if o.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				inbound.OnCompleted()
			} else {
				inbound.OnError(err)
			}
			o.detach()
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		env, err := clusterpb.Unmarshal(data)
		if err != nil {
			logrus.WithError(err).Warn("Dropped malformed cluster frame")
			continue
		}
		inbound.OnMessage(env)
	}
}

// detach 对端已断开，释放连接并拒绝后续发送
func (o *connOutbound) detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.conn.Close()
}
