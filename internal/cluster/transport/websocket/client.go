package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
)

// Client 基于 websocket 的 Transport
type Client struct {
	connectTimeout time.Duration
	dialer         *websocket.Dialer
}

func NewClient(connectTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &Client{
		connectTimeout: connectTimeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: connectTimeout,
		},
	}
}

func (c *Client) OpenChannel(ctx context.Context, addr cluster.PeerAddress, inbound transport.Inbound) (transport.Outbound, error) {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: addr.String(), Path: Path}
	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("connect to %s: %w", addr, transport.ErrConnectTimeout)
		}
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	out := newConnOutbound(conn)
	go out.readLoop(inbound)
	return out, nil
}
