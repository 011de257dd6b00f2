package journal

import (
	"context"
	"time"
)

// EventType 会话生命周期事件
type EventType string

const (
	EventCreated      EventType = "created"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventClosed       EventType = "closed"
	EventFailed       EventType = "failed"
)

// Entry 一条会话日志
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Remote    string    `json:"remote,omitempty"`
	Event     EventType `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryOptions 查询选项
type QueryOptions struct {
	SessionID string    `json:"session_id,omitempty"`
	Remote    string    `json:"remote,omitempty"`
	Event     EventType `json:"event,omitempty"`
	Limit     int       `json:"limit"`
}

// Repository 会话日志仓库
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, options *QueryOptions) ([]*Entry, error)
	Close() error
}
