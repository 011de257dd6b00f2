package bootstrap

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/discovery"
	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/cluster/manager"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	"github.com/9triver/clusterrpc/internal/config"
	"github.com/9triver/clusterrpc/internal/transport/http"
)

type Node struct {
	// 配置
	Config *config.Config

	// 基础设施
	ActorSystem *actor.ActorSystem
	Journal     journal.Repository
	Discovery   *discovery.Static

	// 会话
	SessionManager *manager.Manager
	InitialPeers   []cluster.PeerAddress // Start 时主动连接

	// Transport
	PeerServer transport.Server
	HTTPServer *http.Server
}

func (node *Node) Start(ctx context.Context) error {
	if err := node.PeerServer.Start(ctx); err != nil {
		return err
	}
	logrus.Infof("Peer session server listening on %s", node.PeerServer.Addr())

	// 监听端口为 0 时回填实际端口
	if addr := node.Config.AdvertisedAddress(); addr.Port == 0 {
		if listened, err := cluster.ParsePeerAddress(node.PeerServer.Addr()); err == nil {
			addr.Port = listened.Port
			node.Discovery.Update(addr)
			logrus.Infof("Advertised address resolved to %s", addr)
		}
	}

	// 握手携带的是通告地址，必须在端口回填之后拨号
	for _, peer := range node.InitialPeers {
		node.SessionManager.Dial(peer)
	}
	if len(node.InitialPeers) > 0 {
		logrus.Infof("Dialing %d initial peers", len(node.InitialPeers))
	}

	if node.HTTPServer != nil {
		node.HTTPServer.Start()
	}
	return nil
}

// Stop 停止所有服务并清理资源
func (node *Node) Stop() error {
	if node.HTTPServer != nil {
		node.HTTPServer.Stop()
	}

	// 停止管理 actor 会关闭全部会话
	if node.SessionManager != nil {
		if err := node.SessionManager.Stop(); err != nil {
			logrus.Errorf("Error stopping session manager: %v", err)
		}
	}

	if node.PeerServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := node.PeerServer.Stop(ctx); err != nil {
			logrus.Errorf("Error stopping peer server: %v", err)
		}
		cancel()
	}
	if node.ActorSystem != nil {
		node.ActorSystem.Shutdown()
	}

	if node.Journal != nil {
		if err := node.Journal.Close(); err != nil {
			logrus.Errorf("Error closing session journal: %v", err)
		}
	}

	logrus.Info("All services stopped")
	return nil
}
