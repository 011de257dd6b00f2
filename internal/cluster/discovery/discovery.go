package discovery

import (
	"errors"
	"sync"

	"github.com/9triver/clusterrpc/internal/cluster"
)

var ErrNoAdvertisedAddress = errors.New("discovery: advertised address not set")

// Service 提供本节点对外公布的地址，需支持多个会话并发读取
type Service interface {
	CurrentAdvertisedAddress() (cluster.PeerAddress, error)
}

// Static 由配置给出的固定地址，可在运行期更新（例如监听端口为 0 时回填）
type Static struct {
	mu   sync.RWMutex
	addr cluster.PeerAddress
}

func NewStatic(addr cluster.PeerAddress) *Static {
	return &Static{addr: addr}
}

func (s *Static) CurrentAdvertisedAddress() (cluster.PeerAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr.IsZero() {
		return cluster.PeerAddress{}, ErrNoAdvertisedAddress
	}
	return s.addr, nil
}

func (s *Static) Update(addr cluster.PeerAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr = addr
}
