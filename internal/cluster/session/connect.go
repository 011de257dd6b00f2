package session

import (
	"fmt"

	"github.com/9triver/clusterrpc/internal/cluster/discovery"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

// NewConnectEnvelope 构造握手帧，携带本节点对外公布的地址
func NewConnectEnvelope(d discovery.Service) (*clusterpb.Envelope, error) {
	addr, err := d.CurrentAdvertisedAddress()
	if err != nil {
		return nil, fmt.Errorf("resolve advertised address: %w", err)
	}
	return clusterpb.NewConnect(addr.Host, addr.Port), nil
}
