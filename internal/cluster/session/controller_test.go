package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/discovery"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	"github.com/9triver/clusterrpc/internal/cluster/transport/transporttest"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

var localAddr = cluster.PeerAddress{Host: "10.0.0.1", Port: 9090}

type registryCall struct {
	correlationID string
	inbound       transport.Inbound
}

type stubRegistry struct {
	mu    sync.Mutex
	calls []registryCall
}

func (r *stubRegistry) OnSessionCreated(correlationID string, inbound transport.Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, registryCall{correlationID, inbound})
}

func (r *stubRegistry) Calls() []registryCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]registryCall(nil), r.calls...)
}

type spawnChild struct{}

// parentActor 充当监督者：生成控制器，收集其通知与失败原因
type parentActor struct {
	props  *actor.Props
	events chan any
}

func (p *parentActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *spawnChild:
		ctx.Respond(ctx.Spawn(p.props))
	case *SessionConnected, *EnvelopeReceived, *SessionDisconnected, *actor.Terminated:
		p.events <- msg
	}
}

type fixture struct {
	t         *testing.T
	system    *actor.ActorSystem
	registry  *stubRegistry
	transport *transporttest.Transport
	discovery *discovery.Static
	events    chan any
	failures  chan any
	parent    *actor.PID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		system:    actor.NewActorSystem(),
		registry:  &stubRegistry{},
		transport: &transporttest.Transport{},
		discovery: discovery.NewStatic(localAddr),
		events:    make(chan any, 64),
		failures:  make(chan any, 8),
	}
	t.Cleanup(f.system.Shutdown)
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Discovery:      f.discovery,
		Registry:       f.registry,
		Transport:      f.transport,
		ConnectTimeout: 200 * time.Millisecond,
	}
}

// spawn 在 parentActor 下创建一个控制器
func (f *fixture) spawn() *Handle {
	f.t.Helper()
	strategy := actor.NewOneForOneStrategy(0, time.Second, func(reason any) actor.Directive {
		f.failures <- reason
		return actor.StopDirective
	})
	p := &parentActor{props: Props(f.deps()), events: f.events}
	f.parent = f.system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return p }, actor.WithSupervisor(strategy)))

	res, err := f.system.Root.RequestFuture(f.parent, &spawnChild{}, time.Second).Result()
	require.NoError(f.t, err)
	return NewHandle(f.system.Root, res.(*actor.PID), time.Second)
}

func (f *fixture) nextEvent() any {
	f.t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(2 * time.Second):
		f.t.Fatal("timed out waiting for session event")
		return nil
	}
}

func (f *fixture) nextFailure() any {
	f.t.Helper()
	select {
	case reason := <-f.failures:
		return reason
	case <-time.After(2 * time.Second):
		f.t.Fatal("timed out waiting for supervisor failure")
		return nil
	}
}

func TestServerSession_RegistersInboundOnce(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{}

	h.Create(NewServerSession("u1", out))

	info, err := h.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cluster.RoleServer, info.Role)
	assert.Equal(t, cluster.StateActive, info.State)

	calls := f.registry.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "u1", calls[0].correlationID)
	listener, ok := calls[0].inbound.(*Listener)
	require.True(t, ok)
	assert.True(t, listener.PID().Equal(h.PID()))

	// 服务端不发握手帧
	assert.Empty(t, out.Sent())
	assert.Empty(t, f.transport.Channels())
}

func TestClientSession_SendsConnectFirst(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	remote := cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}

	h.Create(NewClientSession(remote))
	require.NoError(t, h.Relay(context.Background(), clusterpb.NewPayload("p", []byte("1"))))

	channels := f.transport.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, remote, channels[0].Addr)

	sent := channels[0].Outbound.Sent()
	require.Len(t, sent, 2)
	connect := sent[0].GetConnect()
	require.NotNil(t, connect)
	assert.Equal(t, localAddr.Host, connect.Host)
	assert.Equal(t, localAddr.Port, connect.Port)
	assert.Equal(t, []byte("1"), sent[1].GetPayload().Data)

	ev, ok := f.nextEvent().(*SessionConnected)
	require.True(t, ok)
	assert.Equal(t, remote, ev.Remote)
	assert.Equal(t, cluster.RoleClient, ev.Role)
	assert.True(t, ev.PID.Equal(h.PID()))

	info, err := h.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cluster.RoleClient, info.Role)
	assert.Equal(t, remote, info.Remote)
}

func TestRelay_PreservesSubmissionOrder(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{}
	h.Create(NewServerSession("u1", out))

	const n = 200
	for i := 0; i < n; i++ {
		h.Tell(clusterpb.NewPayload("seq", []byte{byte(i)}))
	}
	require.NoError(t, h.Relay(context.Background(), clusterpb.NewPayload("last", nil)))

	sent := out.Sent()
	require.Len(t, sent, n+1)
	for i := 0; i < n; i++ {
		assert.Equal(t, []byte{byte(i)}, sent[i].GetPayload().Data)
	}
	assert.Equal(t, "last", sent[n].GetPayload().Kind)
}

func TestRelay_SingleSendOnServerSession(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{}
	h.Create(NewServerSession("u1", out))

	require.NoError(t, h.Relay(context.Background(), clusterpb.NewPayload("P", nil)))

	sent := out.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "P", sent[0].GetPayload().Kind)
}

func TestRelay_BeforeCreateIsRejected(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()

	err := h.Relay(context.Background(), clusterpb.NewPayload("early", nil))
	assert.ErrorIs(t, err, ErrSessionNotReady)

	info, err := h.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cluster.StateUninitialized, info.State)
}

func TestRelay_RejectsConnectAndEmptyEnvelopes(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{}
	h.Create(NewServerSession("u1", out))

	assert.ErrorIs(t, h.Relay(context.Background(), clusterpb.NewConnect("x", 1)), ErrReservedEnvelope)
	assert.ErrorIs(t, h.Relay(context.Background(), &clusterpb.Envelope{}), ErrInvalidRequest)
	assert.Empty(t, out.Sent())
}

func TestRelay_SendErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	sendErr := errors.New("broken pipe")
	h.Create(NewServerSession("u1", &transporttest.Outbound{SendErr: sendErr}))

	assert.ErrorIs(t, h.Relay(context.Background(), clusterpb.NewPayload("p", nil)), sendErr)
}

func TestStop_ClosesStreamExactlyOnce(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{}
	h.Create(NewServerSession("u1", out))
	_, err := h.Describe(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.Stop())
	assert.Equal(t, 1, out.Closes())

	require.NoError(t, h.Stop())
	assert.Equal(t, 1, out.Closes())

	err = h.Relay(context.Background(), clusterpb.NewPayload("after", nil))
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Empty(t, out.Sent())
}

// Stop 与 CreateSession / Relay 同走信箱，不能越过尚未处理的消息
func TestStop_QueuedBehindCreateAndRelay(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{}
	h.Create(NewServerSession("u1", out))
	h.Tell(clusterpb.NewPayload("p", []byte("last")))

	require.NoError(t, h.Stop())
	assert.Equal(t, 1, out.Closes())
	assert.Len(t, f.registry.Calls(), 1)
	sent := out.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []byte("last"), sent[0].GetPayload().Data)
}

func TestStop_BeforeCreateHasNothingToClose(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()

	require.NoError(t, h.Stop())
	assert.Empty(t, f.transport.Channels())
	assert.Empty(t, f.registry.Calls())
}

func TestStop_CloseFailureIsNotEscalated(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	out := &transporttest.Outbound{CloseErr: errors.New("already reset")}
	h.Create(NewServerSession("u1", out))

	require.NoError(t, h.Stop())
	assert.Equal(t, 1, out.Closes())
	select {
	case reason := <-f.failures:
		t.Fatalf("close failure escalated: %v", reason)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInbound_BridgedThroughControllerInbox(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	h.Create(NewServerSession("u1", &transporttest.Outbound{}))

	_, err := h.Describe(context.Background())
	require.NoError(t, err)
	calls := f.registry.Calls()
	require.Len(t, calls, 1)
	inbound := calls[0].inbound

	peer := cluster.PeerAddress{Host: "10.0.0.7", Port: 7000}
	inbound.OnMessage(clusterpb.NewConnect(peer.Host, peer.Port))
	inbound.OnMessage(clusterpb.NewPayload("rule", []byte("r1")))
	inbound.OnCompleted()

	connected, ok := f.nextEvent().(*SessionConnected)
	require.True(t, ok)
	assert.Equal(t, peer, connected.Remote)
	assert.Equal(t, cluster.RoleServer, connected.Role)

	received, ok := f.nextEvent().(*EnvelopeReceived)
	require.True(t, ok)
	assert.Equal(t, peer, received.From)
	assert.Equal(t, "rule", received.Payload.Kind)

	disconnected, ok := f.nextEvent().(*SessionDisconnected)
	require.True(t, ok)
	assert.NoError(t, disconnected.Err)
	assert.Equal(t, peer, disconnected.Remote)

	info, err := h.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, peer, info.Remote)
}

func TestInbound_ErrorReportsDisconnect(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	h.Create(NewServerSession("u1", &transporttest.Outbound{}))
	_, err := h.Describe(context.Background())
	require.NoError(t, err)

	streamErr := errors.New("connection reset")
	f.registry.Calls()[0].inbound.OnError(streamErr)

	ev, ok := f.nextEvent().(*SessionDisconnected)
	require.True(t, ok)
	assert.ErrorIs(t, ev.Err, streamErr)
}

func TestClientSession_ChannelFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.transport.Err = errors.New("connection refused")
	h := f.spawn()

	h.Create(NewClientSession(cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}))

	reason := f.nextFailure()
	estErr, ok := reason.(*EstablishError)
	require.True(t, ok)
	assert.ErrorIs(t, estErr, f.transport.Err)
	assert.Equal(t, cluster.RoleClient, estErr.Role)

	_, ok = f.nextEvent().(*actor.Terminated)
	assert.True(t, ok)
	assert.ErrorIs(t, h.Relay(context.Background(), clusterpb.NewPayload("p", nil)), ErrSessionClosed)
}

func TestClientSession_ConnectTimeout(t *testing.T) {
	f := newFixture(t)
	f.transport.Delay = time.Second
	h := f.spawn()

	h.Create(NewClientSession(cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}))

	reason := f.nextFailure()
	err, ok := reason.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, transport.ErrConnectTimeout)
}

func TestClientSession_DiscoveryFailureOpensNoChannel(t *testing.T) {
	f := newFixture(t)
	f.discovery.Update(cluster.PeerAddress{})
	h := f.spawn()

	h.Create(NewClientSession(cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}))

	reason := f.nextFailure()
	err, ok := reason.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, discovery.ErrNoAdvertisedAddress)
	assert.Empty(t, f.transport.Channels())
}

func TestCreateSession_InvalidRequestIsFatal(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()

	h.Create(NewServerSession("u1", nil))

	err, ok := f.nextFailure().(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, f.registry.Calls())
}

func TestCreateSession_SecondRequestIgnored(t *testing.T) {
	f := newFixture(t)
	h := f.spawn()
	h.Create(NewServerSession("u1", &transporttest.Outbound{}))
	h.Create(NewClientSession(cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}))

	info, err := h.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cluster.RoleServer, info.Role)
	assert.Len(t, f.registry.Calls(), 1)
	assert.Empty(t, f.transport.Channels())
}
