package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/discovery"
	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/cluster/session"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

const defaultRequestTimeout = 5 * time.Second

// MessageHandler 处理对端发来的应用消息，在管理 actor 内串行调用，不应阻塞
type MessageHandler func(from cluster.PeerAddress, payload *clusterpb.Payload)

type Options struct {
	Discovery discovery.Service
	Transport transport.Transport
	Journal   journal.Repository // 可选
	Handler   MessageHandler     // 为空时只记录日志

	ConnectTimeout time.Duration
	AcceptTimeout  time.Duration
	RequestTimeout time.Duration
}

// Manager 管理本节点与所有对端之间的会话
type Manager struct {
	system   *actor.ActorSystem
	pid      *actor.PID
	registry *Registry
	timeout  time.Duration

	unsubscribe func()
}

func NewManager(system *actor.ActorSystem, opts Options) (*Manager, error) {
	if opts.Discovery == nil || opts.Transport == nil {
		return nil, errors.New("manager: discovery and transport are required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	registry := newRegistry(system.Root, opts.AcceptTimeout)
	sup := newSupervisor(opts, registry)
	props := actor.PropsFromProducer(func() actor.Actor { return sup }, actor.WithSupervisor(sup.strategy()))

	pid, err := system.Root.SpawnNamed(props, "session-manager")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn session manager: %w", err)
	}
	registry.bind(pid)

	return &Manager{
		system:      system,
		pid:         pid,
		registry:    registry,
		timeout:     opts.RequestTimeout,
		unsubscribe: session.LogDroppedRelays(system),
	}, nil
}

// Acceptor 交给传输层服务端使用
func (m *Manager) Acceptor() transport.Acceptor {
	return m.registry
}

// Send 把应用消息发给 remote，必要时先建立客户端会话
func (m *Manager) Send(ctx context.Context, remote cluster.PeerAddress, kind string, data []byte) error {
	if remote.IsZero() {
		return fmt.Errorf("%w: empty remote address", session.ErrInvalidRequest)
	}
	res, err := m.request(ctx, &sendRequest{Remote: remote, Envelope: clusterpb.NewPayload(kind, data)})
	if err != nil {
		return err
	}
	result, ok := res.(*session.RelayResult)
	if !ok {
		return fmt.Errorf("send: unexpected response %T", res)
	}
	return result.Err
}

// Dial 建立到 remote 的会话，不等待握手完成
func (m *Manager) Dial(remote cluster.PeerAddress) {
	m.system.Root.Send(m.pid, &dial{Remote: remote})
}

// Sessions 当前存活的会话
func (m *Manager) Sessions(ctx context.Context) ([]*session.Info, error) {
	res, err := m.request(ctx, &listSessions{})
	if err != nil {
		return nil, err
	}
	pids, _ := res.([]*actor.PID)

	infos := make([]*session.Info, 0, len(pids))
	for _, pid := range pids {
		info, err := session.NewHandle(m.system.Root, pid, m.timeout).Describe(ctx)
		if errors.Is(err, session.ErrSessionClosed) {
			continue
		}
		if err != nil {
			logrus.WithError(err).Warnf("Failed to describe session %s", pid.Id)
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Disconnect 停止到 remote 的所有会话，返回停止的数量
func (m *Manager) Disconnect(ctx context.Context, remote cluster.PeerAddress) (int, error) {
	res, err := m.request(ctx, &disconnect{Remote: remote})
	if err != nil {
		return 0, err
	}
	n, _ := res.(int)
	return n, nil
}

// Stop 停止管理 actor 及其下所有会话，已排队的请求先处理完
func (m *Manager) Stop() error {
	defer m.unsubscribe()
	return m.system.Root.PoisonFuture(m.pid).Wait()
}

func (m *Manager) request(ctx context.Context, msg any) (any, error) {
	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	res, err := m.system.Root.RequestFuture(m.pid, msg, timeout).Result()
	switch {
	case errors.Is(err, actor.ErrDeadLetter):
		return nil, session.ErrSessionClosed
	case err != nil:
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return res, nil
}
