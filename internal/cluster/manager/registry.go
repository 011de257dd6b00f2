package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
)

const defaultAcceptTimeout = 5 * time.Second

// ErrAcceptTimeout 服务端会话未在时限内完成创建
var ErrAcceptTimeout = errors.New("manager: accept timeout")

// Registry 连接传输层与会话控制器：
// 传输层通过 Accept 请求一个服务端会话，控制器创建完成后通过 OnSessionCreated 交回入站处理器。
type Registry struct {
	root    *actor.RootContext
	timeout time.Duration

	mu      sync.Mutex
	owner   *actor.PID
	pending map[string]chan transport.Inbound
	created map[string]struct{} // 控制器已接管出站流的 correlation id
}

func newRegistry(root *actor.RootContext, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = defaultAcceptTimeout
	}
	return &Registry{
		root:    root,
		timeout: timeout,
		pending: make(map[string]chan transport.Inbound),
		created: make(map[string]struct{}),
	}
}

func (r *Registry) bind(owner *actor.PID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = owner
}

// Accept 实现 transport.Acceptor
func (r *Registry) Accept(ctx context.Context, outbound transport.Outbound) (transport.Inbound, error) {
	r.mu.Lock()
	owner := r.owner
	r.mu.Unlock()
	if owner == nil {
		return nil, errors.New("manager: not started")
	}

	correlationID := cluster.NewCorrelationID()
	ch := make(chan transport.Inbound, 1)
	r.mu.Lock()
	r.pending[correlationID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, correlationID)
		r.mu.Unlock()
	}()

	r.root.Send(owner, &spawnServer{CorrelationID: correlationID, Outbound: outbound})

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case inbound := <-ch:
		return inbound, nil
	case <-timer.C:
		r.root.Send(owner, &dropServer{CorrelationID: correlationID})
		return nil, ErrAcceptTimeout
	case <-ctx.Done():
		r.root.Send(owner, &dropServer{CorrelationID: correlationID})
		return nil, ctx.Err()
	}
}

// OnSessionCreated 实现 session.Registry
func (r *Registry) OnSessionCreated(correlationID string, inbound transport.Inbound) {
	r.mu.Lock()
	r.created[correlationID] = struct{}{}
	ch, ok := r.pending[correlationID]
	r.mu.Unlock()
	if !ok {
		logrus.WithField("correlation_id", correlationID).Warn("No pending accept for created session")
		return
	}
	ch <- inbound
}

// release 清除 correlationID 的接管记录，返回控制器是否曾接管出站流
func (r *Registry) release(correlationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.created[correlationID]
	delete(r.created, correlationID)
	return ok
}
