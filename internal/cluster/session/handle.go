package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

const defaultRequestTimeout = 5 * time.Second

// Handle 通过 PID 操作一个会话控制器
type Handle struct {
	root    *actor.RootContext
	pid     *actor.PID
	timeout time.Duration
}

func NewHandle(root *actor.RootContext, pid *actor.PID, timeout time.Duration) *Handle {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handle{root: root, pid: pid, timeout: timeout}
}

func (h *Handle) PID() *actor.PID { return h.pid }

// Create 发送 CreateSession，不等待建立完成；之后的 Relay 按顺序排在其后
func (h *Handle) Create(req *CreateSession) {
	h.root.Send(h.pid, req)
}

// Relay 转发并等待控制器受理结果（不等待对端确认）
func (h *Handle) Relay(ctx context.Context, env *clusterpb.Envelope) error {
	res, err := h.request(ctx, &Relay{Envelope: env})
	if err != nil {
		return err
	}
	result, ok := res.(*RelayResult)
	if !ok {
		return fmt.Errorf("relay: unexpected response %T", res)
	}
	return result.Err
}

// Tell 即发即弃，不返回拒绝结果：控制器拒绝时记录日志，
// 会话已停止时消息进入死信，由 LogDroppedRelays 记录。需要结果时用 Relay。
func (h *Handle) Tell(env *clusterpb.Envelope) {
	h.root.Send(h.pid, &Relay{Envelope: env})
}

func (h *Handle) Describe(ctx context.Context) (*Info, error) {
	res, err := h.request(ctx, &Describe{})
	if err != nil {
		return nil, err
	}
	info, ok := res.(*Info)
	if !ok {
		return nil, fmt.Errorf("describe: unexpected response %T", res)
	}
	return info, nil
}

// Stop 停止控制器并等待其退出，重复调用无副作用。
// 停止消息走普通信箱，排在之前发出的 CreateSession / Relay 之后。
func (h *Handle) Stop() error {
	return h.root.PoisonFuture(h.pid).Wait()
}

func (h *Handle) request(ctx context.Context, msg any) (any, error) {
	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	res, err := h.root.RequestFuture(h.pid, msg, timeout).Result()
	switch {
	case errors.Is(err, actor.ErrDeadLetter):
		return nil, ErrSessionClosed
	case err != nil:
		return nil, fmt.Errorf("session %s: %w", h.pid.Id, err)
	}
	return res, nil
}
