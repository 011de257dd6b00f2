package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster/transport"
)

// Server 在 Path 上接入 websocket 会话
type Server struct {
	addr     string
	acceptor transport.Acceptor
	upgrader websocket.Upgrader

	mu      sync.Mutex
	httpSrv *http.Server
	lis     net.Listener
}

func NewServer(addr string, acceptor transport.Acceptor) *Server {
	return &Server{
		addr:     addr,
		acceptor: acceptor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler 单独挂载时使用，例如和管理接口共用一个端口
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Handle(Path, s).Methods(http.MethodGet)
	return router
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv, s.lis = httpSrv, lis
	s.mu.Unlock()

	go func() {
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("cluster websocket server stopped unexpectedly")
		}
	}()
	logrus.Infof("Cluster websocket server listening on %s%s", lis.Addr(), Path)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.mu.Unlock()
	if httpSrv == nil {
		return nil
	}
	return httpSrv.Shutdown(ctx)
}

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return s.addr
	}
	return s.lis.Addr().String()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logrus.WithFields(logrus.Fields{"transport": "websocket", "from": r.RemoteAddr})

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	out := newConnOutbound(conn)
	inbound, err := s.acceptor.Accept(r.Context(), out)
	if err != nil {
		log.WithError(err).Warn("Rejected cluster session")
		out.closeWith(websocket.CloseTryAgainLater, err.Error())
		return
	}
	log.Debug("Cluster session accepted")

	out.readLoop(inbound)
}
