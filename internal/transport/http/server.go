package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster/journal"
	sessionAPI "github.com/9triver/clusterrpc/internal/transport/http/session"
)

type Options struct {
	ListenAddr string
	Manager    sessionAPI.Manager
	Journal    journal.Repository
}

type Server struct {
	Server *http.Server
	Router *mux.Router
}

func NewServer(opts Options) *Server {
	router := mux.NewRouter()
	sessionAPI.RegisterRoutes(router, opts.Manager, opts.Journal)

	return &Server{
		Server: &http.Server{Addr: opts.ListenAddr, Handler: router},
		Router: router,
	}
}

func (s *Server) Start() {
	go func() {
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	logrus.Infof("HTTP server started on %s", s.Server.Addr)
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Failed to stop HTTP server")
	}
	logrus.Info("HTTP server stopped")
}
