package bootstrap

import (
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster/transport/rpc"
	"github.com/9triver/clusterrpc/internal/cluster/transport/websocket"
	"github.com/9triver/clusterrpc/internal/config"
	"github.com/9triver/clusterrpc/internal/transport/http"
)

// bootstrapTransport 创建对端会话服务器与 HTTP 管理接口（不启动，启动操作在 Start 方法中统一执行）
func bootstrapTransport(node *Node) error {
	cfg := node.Config
	acceptor := node.SessionManager.Acceptor()

	switch cfg.Transport.Kind {
	case config.TransportWebSocket:
		node.PeerServer = websocket.NewServer(cfg.PeerListenAddr, acceptor)
	default:
		node.PeerServer = rpc.NewServer(cfg.PeerListenAddr, acceptor)
	}

	if cfg.HTTP.ListenAddr != "" {
		node.HTTPServer = http.NewServer(http.Options{
			ListenAddr: cfg.HTTP.ListenAddr,
			Manager:    node.SessionManager,
			Journal:    node.Journal,
		})
	}

	logrus.Info("Transport layer initialized")
	return nil
}
