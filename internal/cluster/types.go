package cluster

import (
	"fmt"
	"net"
	"strconv"

	"github.com/lithammer/shortuuid/v4"
)

// PeerAddress 集群节点地址
type PeerAddress struct {
	Host string `json:"host" yaml:"host"`
	Port int32  `json:"port" yaml:"port"`
}

func (a PeerAddress) IsZero() bool {
	return a.Host == "" && a.Port == 0
}

func (a PeerAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ParsePeerAddress 解析 "host:port"
func ParsePeerAddress(s string) (PeerAddress, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return PeerAddress{}, fmt.Errorf("invalid peer address %q: %w", s, err)
	}
	port, err := strconv.ParseInt(portStr, 10, 32)
	if err != nil || port <= 0 || port > 65535 {
		return PeerAddress{}, fmt.Errorf("invalid peer port %q", portStr)
	}
	if host == "" {
		return PeerAddress{}, fmt.Errorf("invalid peer address %q: empty host", s)
	}
	return PeerAddress{Host: host, Port: int32(port)}, nil
}

// SessionID 会话实例标识，创建控制器时分配
type SessionID string

func NewSessionID() SessionID {
	return SessionID(shortuuid.New())
}

// NewCorrelationID 入站会话与注册表之间的关联 ID
func NewCorrelationID() string {
	return "corr-" + shortuuid.New()
}

// Role 会话角色，创建时确定，之后不可变
type Role int

const (
	RoleClient Role = iota + 1
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// SessionState 会话状态：Uninitialized -> Active -> Closed
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
