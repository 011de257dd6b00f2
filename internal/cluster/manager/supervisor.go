package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/cluster/session"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

const journalTimeout = 2 * time.Second

type sessionEntry struct {
	id            cluster.SessionID
	pid           *actor.PID
	role          cluster.Role
	remote        cluster.PeerAddress
	correlationID string
	outbound      transport.Outbound // 仅 Server
	failure       error
}

// supervisor 所有会话控制器的父 actor，负责生成、监督与停止
type supervisor struct {
	opts     Options
	deps     session.Deps
	registry *Registry
	sessions map[string]*sessionEntry // key: pid.Id
	peers    map[cluster.PeerAddress]*actor.PID
	log      *logrus.Entry
}

func newSupervisor(opts Options, registry *Registry) *supervisor {
	return &supervisor{
		opts: opts,
		deps: session.Deps{
			Discovery:      opts.Discovery,
			Registry:       registry,
			Transport:      opts.Transport,
			ConnectTimeout: opts.ConnectTimeout,
		},
		registry: registry,
		sessions: make(map[string]*sessionEntry),
		peers:    make(map[cluster.PeerAddress]*actor.PID),
		log:      logrus.WithField("component", "session-manager"),
	}
}

// strategy 建立失败即停止该控制器，不重启
func (s *supervisor) strategy() actor.SupervisorStrategy {
	return actor.NewOneForOneStrategy(0, time.Second, func(reason any) actor.Directive {
		err, ok := reason.(error)
		if !ok {
			err = fmt.Errorf("%v", reason)
		}
		var estErr *session.EstablishError
		if errors.As(err, &estErr) {
			for _, e := range s.sessions {
				if e.id == estErr.SessionID {
					e.failure = err
					break
				}
			}
		}
		s.log.WithError(err).Error("Session failed, stopping controller")
		return actor.StopDirective
	})
}

func (s *supervisor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		s.log.Info("Session manager started")
	case *sendRequest:
		pid := s.ensureClient(ctx, msg.Remote)
		ctx.RequestWithCustomSender(pid, &session.Relay{Envelope: msg.Envelope}, ctx.Sender())
	case *dial:
		s.ensureClient(ctx, msg.Remote)
	case *spawnServer:
		s.spawn(ctx, session.NewServerSession(msg.CorrelationID, msg.Outbound))
	case *dropServer:
		for _, e := range s.sessions {
			if e.correlationID == msg.CorrelationID {
				s.log.WithField("session_id", e.id).Warn("Accept abandoned, stopping server session")
				ctx.Poison(e.pid)
			}
		}
	case *disconnect:
		stopped := 0
		for _, e := range s.sessions {
			if e.remote == msg.Remote {
				ctx.Poison(e.pid)
				stopped++
			}
		}
		ctx.Respond(stopped)
	case *listSessions:
		pids := make([]*actor.PID, 0, len(s.sessions))
		for _, e := range s.sessions {
			pids = append(pids, e.pid)
		}
		ctx.Respond(pids)
	case *session.SessionConnected:
		s.onConnected(msg)
	case *session.EnvelopeReceived:
		s.dispatch(msg.From, msg.Payload)
	case *session.SessionDisconnected:
		detail := "completed"
		if msg.Err != nil {
			detail = msg.Err.Error()
		}
		s.record(msg.SessionID, msg.Role, msg.Remote, journal.EventDisconnected, detail)
		ctx.Stop(msg.PID)
	case *actor.Terminated:
		s.onTerminated(msg.Who)
	}
}

// ensureClient 已有到 remote 的会话则复用，否则新建客户端会话
func (s *supervisor) ensureClient(ctx actor.Context, remote cluster.PeerAddress) *actor.PID {
	if pid, ok := s.peers[remote]; ok {
		return pid
	}
	pid := s.spawn(ctx, session.NewClientSession(remote))
	s.peers[remote] = pid
	return pid
}

func (s *supervisor) spawn(ctx actor.Context, req *session.CreateSession) *actor.PID {
	id := cluster.NewSessionID()
	pid := ctx.Spawn(session.PropsWithID(id, s.deps))
	s.sessions[pid.Id] = &sessionEntry{
		id:            id,
		pid:           pid,
		role:          req.Role,
		remote:        req.Remote,
		correlationID: req.CorrelationID,
		outbound:      req.Outbound,
	}
	ctx.Send(pid, req)
	s.record(id, req.Role, req.Remote, journal.EventCreated, "")
	return pid
}

func (s *supervisor) onConnected(msg *session.SessionConnected) {
	e, ok := s.sessions[msg.PID.Id]
	if !ok {
		return
	}
	e.remote = msg.Remote
	if _, exists := s.peers[msg.Remote]; !exists {
		s.peers[msg.Remote] = msg.PID
	}
	s.record(msg.SessionID, msg.Role, msg.Remote, journal.EventConnected, "")
}

func (s *supervisor) onTerminated(who *actor.PID) {
	e, ok := s.sessions[who.Id]
	if !ok {
		return
	}
	delete(s.sessions, who.Id)
	if pid, ok := s.peers[e.remote]; ok && pid.Equal(who) {
		delete(s.peers, e.remote)
	}
	// 控制器在处理 CreateSession 之前就被停止时，出站流仍归这里关闭
	if e.role == cluster.RoleServer && !s.registry.release(e.correlationID) && e.outbound != nil {
		if err := e.outbound.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to close unclaimed session stream")
		}
	}

	if e.failure != nil {
		s.record(e.id, e.role, e.remote, journal.EventFailed, e.failure.Error())
		return
	}
	s.record(e.id, e.role, e.remote, journal.EventClosed, "")
}

func (s *supervisor) dispatch(from cluster.PeerAddress, payload *clusterpb.Payload) {
	if s.opts.Handler == nil {
		s.log.WithField("remote", from).Infof("Received %s message (%d bytes)", payload.Kind, len(payload.Data))
		return
	}
	s.opts.Handler(from, payload)
}

func (s *supervisor) record(id cluster.SessionID, role cluster.Role, remote cluster.PeerAddress, event journal.EventType, detail string) {
	if s.opts.Journal == nil {
		return
	}
	entry := &journal.Entry{
		SessionID: string(id),
		Role:      role.String(),
		Event:     event,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	if !remote.IsZero() {
		entry.Remote = remote.String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.opts.Journal.Record(ctx, entry); err != nil {
		s.log.WithError(err).Warnf("Failed to record session %s event", event)
	}
}
