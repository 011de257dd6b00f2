package session

import (
	"errors"
	"fmt"

	"github.com/9triver/clusterrpc/internal/cluster"
)

var (
	// ErrSessionNotReady CreateSession 尚未处理完成
	ErrSessionNotReady = errors.New("session: not ready")
	// ErrSessionClosed 会话已停止
	ErrSessionClosed = errors.New("session: closed")
	// ErrReservedEnvelope Connect 帧只能由握手发出
	ErrReservedEnvelope = errors.New("session: connect envelope is reserved for handshake")
	// ErrInvalidRequest 请求参数不合法，例如 CreateSession 与角色不符
	ErrInvalidRequest = errors.New("session: invalid request")
)

// EstablishError 会话建立失败，作为 panic 原因上报给监督者
type EstablishError struct {
	SessionID cluster.SessionID
	Role      cluster.Role
	Remote    cluster.PeerAddress
	Err       error
}

func (e *EstablishError) Error() string {
	if e.Remote.IsZero() {
		return fmt.Sprintf("establish %s session %s: %v", e.Role, e.SessionID, e.Err)
	}
	return fmt.Sprintf("establish %s session %s to %s: %v", e.Role, e.SessionID, e.Remote, e.Err)
}

func (e *EstablishError) Unwrap() error { return e.Err }
