package session

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/discovery"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

const defaultConnectTimeout = 5 * time.Second

// Registry 接收新建的服务端会话，传输层据此把入站帧交给对应的 Inbound
type Registry interface {
	OnSessionCreated(correlationID string, inbound transport.Inbound)
}

// Deps 控制器依赖的协作方，由创建者显式注入
type Deps struct {
	Discovery      discovery.Service
	Registry       Registry
	Transport      transport.Transport
	ConnectTimeout time.Duration
}

// Props 每个会话一个控制器 actor
func Props(deps Deps, opts ...actor.PropsOption) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewController(cluster.NewSessionID(), deps)
	}, opts...)
}

// PropsWithID 会话 ID 由调用方指定，建立前即可用于关联日志
func PropsWithID(id cluster.SessionID, deps Deps, opts ...actor.PropsOption) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewController(id, deps)
	}, opts...)
}

// Controller 一个逻辑会话的控制器，独占该会话的流直到停止
type Controller struct {
	id     cluster.SessionID
	deps   Deps
	role   cluster.Role
	state  cluster.SessionState
	remote cluster.PeerAddress
	stream transport.Outbound
	log    *logrus.Entry
}

func NewController(id cluster.SessionID, deps Deps) *Controller {
	if deps.ConnectTimeout <= 0 {
		deps.ConnectTimeout = defaultConnectTimeout
	}
	return &Controller{
		id:    id,
		deps:  deps,
		state: cluster.StateUninitialized,
		log:   logrus.WithField("session_id", id),
	}
}

func (c *Controller) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		c.log.Debug("Session controller started")
	case *actor.Stopping, *actor.Restarting:
		c.stop()
	case Command:
		c.handleCommand(ctx, msg)
	case *inboundFrame:
		c.onInboundFrame(ctx, msg.env)
	case *inboundClosed:
		c.onInboundClosed(ctx, msg.err)
	case *Describe:
		ctx.Respond(&Info{ID: c.id, Role: c.role, Remote: c.remote, State: c.state})
	}
}

func (c *Controller) handleCommand(ctx actor.Context, cmd Command) {
	switch m := cmd.(type) {
	case *CreateSession:
		c.createSession(ctx, m)
	case *Relay:
		err := c.relay(m.Envelope)
		if ctx.Sender() != nil {
			ctx.Respond(&RelayResult{Err: err})
		} else if err != nil {
			c.log.WithError(err).Warn("Relay rejected")
		}
	}
}

func (c *Controller) createSession(ctx actor.Context, req *CreateSession) {
	if c.state != cluster.StateUninitialized {
		c.log.Warnf("Ignored CreateSession in state %s", c.state)
		return
	}

	c.role = req.Role
	c.log = c.log.WithField("role", req.Role)
	c.log.Infof("[%s] Initializing session", ctx.Self().Id)

	listener := NewListener(ctx.ActorSystem().Root, ctx.Self())
	switch req.Role {
	case cluster.RoleServer:
		c.initServer(req, listener)
	case cluster.RoleClient:
		c.initClient(ctx, req, listener)
	default:
		c.fail(fmt.Errorf("%w: unknown role %d", ErrInvalidRequest, req.Role))
	}
}

func (c *Controller) initServer(req *CreateSession, listener *Listener) {
	if req.Outbound == nil || req.CorrelationID == "" {
		c.fail(fmt.Errorf("%w: server session needs outbound and correlation id", ErrInvalidRequest))
	}

	c.stream = req.Outbound
	c.state = cluster.StateActive
	c.deps.Registry.OnSessionCreated(req.CorrelationID, listener)
	c.log.WithField("correlation_id", req.CorrelationID).Info("Server session created")
}

func (c *Controller) initClient(ctx actor.Context, req *CreateSession, listener *Listener) {
	c.remote = req.Remote
	c.log = c.log.WithField("remote", req.Remote)
	if req.Remote.IsZero() {
		c.fail(fmt.Errorf("%w: client session needs remote address", ErrInvalidRequest))
	}

	connect, err := NewConnectEnvelope(c.deps.Discovery)
	if err != nil {
		c.fail(err)
	}

	openCtx, cancel := context.WithTimeout(context.Background(), c.deps.ConnectTimeout)
	defer cancel()
	out, err := c.deps.Transport.OpenChannel(openCtx, req.Remote, listener)
	if err != nil {
		c.fail(err)
	}

	c.stream = out
	c.state = cluster.StateActive
	if err := c.stream.Send(connect); err != nil {
		c.fail(fmt.Errorf("send connect: %w", err))
	}
	c.log.Info("Client session connected")

	c.notifyParent(ctx, &SessionConnected{SessionID: c.id, Role: c.role, Remote: c.remote, PID: ctx.Self()})
}

// fail 建立失败交给监督者处理，本实例不做恢复
func (c *Controller) fail(err error) {
	panic(&EstablishError{SessionID: c.id, Role: c.role, Remote: c.remote, Err: err})
}

func (c *Controller) relay(env *clusterpb.Envelope) error {
	switch c.state {
	case cluster.StateUninitialized:
		return ErrSessionNotReady
	case cluster.StateClosed:
		return ErrSessionClosed
	}
	if env == nil || env.Body == nil {
		return fmt.Errorf("%w: empty envelope", ErrInvalidRequest)
	}
	if env.GetConnect() != nil {
		return ErrReservedEnvelope
	}
	return c.stream.Send(env)
}

func (c *Controller) onInboundFrame(ctx actor.Context, env *clusterpb.Envelope) {
	if c.state != cluster.StateActive {
		return
	}

	switch body := env.Body.(type) {
	case *clusterpb.Connect:
		if c.role != cluster.RoleServer {
			c.log.Warn("Unexpected connect frame on client session")
			return
		}
		c.remote = cluster.PeerAddress{Host: body.Host, Port: body.Port}
		c.log = c.log.WithField("remote", c.remote)
		c.log.Info("Peer announced itself")
		c.notifyParent(ctx, &SessionConnected{SessionID: c.id, Role: c.role, Remote: c.remote, PID: ctx.Self()})
	case *clusterpb.Payload:
		c.notifyParent(ctx, &EnvelopeReceived{SessionID: c.id, From: c.remote, Payload: body})
	}
}

func (c *Controller) onInboundClosed(ctx actor.Context, err error) {
	if c.state != cluster.StateActive {
		return
	}
	if err != nil {
		c.log.WithError(err).Warn("Inbound stream failed")
	} else {
		c.log.Info("Inbound stream completed")
	}
	c.notifyParent(ctx, &SessionDisconnected{SessionID: c.id, Role: c.role, Remote: c.remote, PID: ctx.Self(), Err: err})
}

func (c *Controller) notifyParent(ctx actor.Context, msg any) {
	if parent := ctx.Parent(); parent != nil {
		ctx.Send(parent, msg)
	}
}

// stop 关闭流，最多执行一次；关闭失败只记录日志
func (c *Controller) stop() {
	if c.state == cluster.StateClosed {
		return
	}
	c.state = cluster.StateClosed
	if c.stream == nil {
		return
	}

	c.log.Infof("Closing session -> %s", c.remote)
	if err := c.stream.Close(); err != nil {
		c.log.WithError(err).Warn("Failed to close session stream")
	}
	c.stream = nil
}
