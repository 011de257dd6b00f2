package config

import (
	"fmt"
	"time"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/infra/database"
	"github.com/9triver/clusterrpc/internal/infra/logging"
)

// 会话传输方式
const (
	TransportGRPC      = "grpc"
	TransportWebSocket = "websocket"
)

// Config 节点配置
// 各模块配置通过组合方式引入
type Config struct {
	// 节点基础配置
	Host           string   `yaml:"host"`             // 对外公布的地址，写入握手帧
	Port           int32    `yaml:"port"`             // 对外公布的端口，默认取 peer_listen_addr 的端口
	PeerListenAddr string   `yaml:"peer_listen_addr"` // e.g., ":50051"
	InitialPeers   []string `yaml:"initial_peers"`    // e.g., ["peer1:50051"]
	DataDir        string   `yaml:"data_dir"`         // e.g., "./data" - directory for SQLite databases

	// 基础设施配置
	Database database.Config `yaml:"database"`
	Logging  logging.Config  `yaml:"logging"`

	Transport TransportConfig `yaml:"transport"`
	Session   SessionConfig   `yaml:"session"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// TransportConfig 会话使用的传输层
type TransportConfig struct {
	Kind string `yaml:"kind"` // "grpc" or "websocket"
}

// SessionConfig 会话超时配置
type SessionConfig struct {
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"` // 客户端建连等待上限
	AcceptTimeoutSeconds  int `yaml:"accept_timeout_seconds"`  // 服务端会话创建等待上限
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"` // 管理 API 请求超时
}

func (c SessionConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c SessionConfig) AcceptTimeout() time.Duration {
	return time.Duration(c.AcceptTimeoutSeconds) * time.Second
}

func (c SessionConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// HTTPConfig 管理接口
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"` // e.g., ":8080"，为空则不启动
}

// AdvertisedAddress 本节点对外地址
func (c *Config) AdvertisedAddress() cluster.PeerAddress {
	return cluster.PeerAddress{Host: c.Host, Port: c.Port}
}

// Peers 解析 initial_peers
func (c *Config) Peers() ([]cluster.PeerAddress, error) {
	peers := make([]cluster.PeerAddress, 0, len(c.InitialPeers))
	for _, s := range c.InitialPeers {
		addr, err := cluster.ParsePeerAddress(s)
		if err != nil {
			return nil, fmt.Errorf("initial_peers: %w", err)
		}
		peers = append(peers, addr)
	}
	return peers, nil
}

// Validate 检查默认值无法修正的配置错误
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportGRPC, TransportWebSocket:
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := c.Peers(); err != nil {
		return err
	}
	return nil
}
