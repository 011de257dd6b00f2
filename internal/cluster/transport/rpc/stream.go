package rpc

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// pump 从流中读帧交给 inbound，直到流结束。本端已关闭时不再回调。
func pump(recv func(m any) error, inbound transport.Inbound, closed func() bool) error {
	for {
		env := new(clusterpb.Envelope)
		if err := recv(env); err != nil {
			if closed() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				inbound.OnCompleted()
				return nil
			}
			if status.Code(err) == codes.Canceled {
				inbound.OnCompleted()
				return nil
			}
			inbound.OnError(err)
			return err
		}
		inbound.OnMessage(env)
	}
}

// serverOutbound 服务端流的发送侧；Close 让 handler 返回从而结束 RPC
type serverOutbound struct {
	mu     sync.Mutex
	stream grpc.ServerStream
	closed bool
	done   chan struct{}
}

func newServerOutbound(stream grpc.ServerStream) *serverOutbound {
	return &serverOutbound{stream: stream, done: make(chan struct{})}
}

func (o *serverOutbound) Send(env *clusterpb.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return transport.ErrStreamClosed
	}
	return o.stream.SendMsg(env)
}

func (o *serverOutbound) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	close(o.done)
	return nil
}

// detach handler 即将返回，之后的 Send 一律拒绝
func (o *serverOutbound) detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

func (o *serverOutbound) isClosed() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// clientOutbound 客户端流的发送侧，独占底层连接
type clientOutbound struct {
	mu     sync.Mutex
	stream grpc.ClientStream
	cancel context.CancelFunc
	conn   *grpc.ClientConn
	closed bool
}

func (o *clientOutbound) Send(env *clusterpb.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return transport.ErrStreamClosed
	}
	return o.stream.SendMsg(env)
}

func (o *clientOutbound) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	sendErr := o.stream.CloseSend()
	o.cancel()
	return errors.Join(sendErr, o.conn.Close())
}

func (o *clientOutbound) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
