package bootstrap

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster/discovery"
	"github.com/9triver/clusterrpc/internal/cluster/manager"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	"github.com/9triver/clusterrpc/internal/cluster/transport/rpc"
	"github.com/9triver/clusterrpc/internal/cluster/transport/websocket"
	"github.com/9triver/clusterrpc/internal/config"
	"github.com/9triver/clusterrpc/internal/util"
)

// bootstrapCluster 初始化 actor 系统、节点发现与会话管理
func bootstrapCluster(node *Node) error {
	cfg := node.Config

	peers, err := cfg.Peers()
	if err != nil {
		return err
	}
	node.InitialPeers = peers

	node.ActorSystem = actor.NewActorSystem(util.WithActorLogger())
	node.Discovery = discovery.NewStatic(cfg.AdvertisedAddress())

	var client transport.Transport
	switch cfg.Transport.Kind {
	case config.TransportWebSocket:
		client = websocket.NewClient(cfg.Session.ConnectTimeout())
	default:
		client = rpc.NewClient(cfg.Session.ConnectTimeout())
	}

	mgr, err := manager.NewManager(node.ActorSystem, manager.Options{
		Discovery:      node.Discovery,
		Transport:      client,
		Journal:        node.Journal,
		ConnectTimeout: cfg.Session.ConnectTimeout(),
		AcceptTimeout:  cfg.Session.AcceptTimeout(),
		RequestTimeout: cfg.Session.RequestTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	node.SessionManager = mgr

	logrus.Infof("Cluster module initialized, advertised as %s via %s", cfg.AdvertisedAddress(), cfg.Transport.Kind)
	return nil
}
