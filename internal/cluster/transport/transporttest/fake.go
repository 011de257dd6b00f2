// Package transporttest 提供测试用的传输层替身
package transporttest

import (
	"context"
	"sync"
	"time"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// Recorder 记录入站回调
type Recorder struct {
	mu        sync.Mutex
	messages  []*clusterpb.Envelope
	errs      []error
	completed int
}

func (r *Recorder) OnMessage(env *clusterpb.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, env)
}

func (r *Recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *Recorder) OnCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *Recorder) Messages() []*clusterpb.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*clusterpb.Envelope(nil), r.messages...)
}

func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *Recorder) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Ended 收到 OnCompleted 或 OnError
func (r *Recorder) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed > 0 || len(r.errs) > 0
}

// Outbound 记录发送内容与关闭次数
type Outbound struct {
	mu       sync.Mutex
	sent     []*clusterpb.Envelope
	closes   int
	SendErr  error
	CloseErr error
}

func (o *Outbound) Send(env *clusterpb.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.SendErr != nil {
		return o.SendErr
	}
	o.sent = append(o.sent, env)
	return nil
}

func (o *Outbound) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closes++
	return o.CloseErr
}

func (o *Outbound) Sent() []*clusterpb.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*clusterpb.Envelope(nil), o.sent...)
}

func (o *Outbound) Closes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closes
}

// Channel 一次 OpenChannel 调用的记录
type Channel struct {
	Addr     cluster.PeerAddress
	Inbound  transport.Inbound
	Outbound *Outbound
}

// Transport 内存版 Transport，可注入建连错误与延迟
type Transport struct {
	Err   error
	Delay time.Duration

	mu       sync.Mutex
	channels []*Channel
}

func (t *Transport) OpenChannel(ctx context.Context, addr cluster.PeerAddress, inbound transport.Inbound) (transport.Outbound, error) {
	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return nil, transport.ErrConnectTimeout
		}
	}
	if t.Err != nil {
		return nil, t.Err
	}

	ch := &Channel{Addr: addr, Inbound: inbound, Outbound: &Outbound{}}
	t.mu.Lock()
	t.channels = append(t.channels, ch)
	t.mu.Unlock()
	return ch.Outbound, nil
}

func (t *Transport) Channels() []*Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Channel(nil), t.channels...)
}
