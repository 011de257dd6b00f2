package rpc

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/9triver/clusterrpc/internal/cluster/transport"
)

// Server 接入对端发起的集群会话
type Server struct {
	addr     string
	acceptor transport.Acceptor
	opts     []grpc.ServerOption

	mu  sync.Mutex
	srv *grpc.Server
	lis net.Listener
}

func NewServer(addr string, acceptor transport.Acceptor, opts ...grpc.ServerOption) *Server {
	return &Server{addr: addr, acceptor: acceptor, opts: opts}
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(s.opts...)
	RegisterClusterRpcServiceServer(srv, s)

	s.mu.Lock()
	s.srv, s.lis = srv, lis
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logrus.WithError(err).Error("cluster rpc server stopped unexpectedly")
		}
	}()
	logrus.Infof("Cluster rpc server listening on %s", lis.Addr())
	return nil
}

// Stop 优雅关闭，ctx 到期后强制关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
	return nil
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return s.addr
	}
	return s.lis.Addr().String()
}

// HandlePluginMsgs 每个入站流对应一个服务端会话
func (s *Server) HandlePluginMsgs(stream grpc.ServerStream) error {
	log := logrus.WithField("transport", "grpc")
	if p, ok := peer.FromContext(stream.Context()); ok {
		log = log.WithField("from", p.Addr.String())
	}

	out := newServerOutbound(stream)
	inbound, err := s.acceptor.Accept(stream.Context(), out)
	if err != nil {
		log.WithError(err).Warn("Rejected cluster session")
		return status.Errorf(codes.Unavailable, "accept session: %v", err)
	}
	log.Debug("Cluster session accepted")

	recvDone := make(chan error, 1)
	go func() {
		recvDone <- pump(stream.RecvMsg, inbound, out.isClosed)
	}()

	select {
	case <-out.done:
		return nil
	case err := <-recvDone:
		out.detach()
		return err
	}
}
