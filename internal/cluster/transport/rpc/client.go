package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/transport"
	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

const defaultConnectTimeout = 5 * time.Second

// Client 基于 gRPC 的 Transport，每个会话独占一条连接
type Client struct {
	connectTimeout time.Duration
	dialOpts       []grpc.DialOption
}

func NewClient(connectTimeout time.Duration, opts ...grpc.DialOption) *Client {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	return &Client{connectTimeout: connectTimeout, dialOpts: opts}
}

func (c *Client) OpenChannel(ctx context.Context, addr cluster.PeerAddress, inbound transport.Inbound) (transport.Outbound, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(clusterpb.CodecName)),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(addr.String(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create channel to %s: %w", addr, err)
	}

	if err := c.waitReady(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	// 流的生命周期由会话决定，不跟随建连 ctx
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(streamCtx, &serviceDesc.Streams[0], fullMethodName)
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("open stream to %s: %w", addr, err)
	}

	out := &clientOutbound{stream: stream, cancel: cancel, conn: conn}
	go pump(stream.RecvMsg, inbound, out.isClosed)
	return out, nil
}

// waitReady 在 connectTimeout 内等待连接就绪
func (c *Client) waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("channel shut down")
		case connectivity.Idle:
			conn.Connect()
		}
		if !conn.WaitForStateChange(ctx, state) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return transport.ErrConnectTimeout
			}
			return ctx.Err()
		}
	}
}
