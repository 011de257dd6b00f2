package session

import (
	"time"

	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/cluster/session"
)

// SessionItem 会话列表中的一项
type SessionItem struct {
	ID     string `json:"id"`     // 会话ID
	Role   string `json:"role"`   // client / server
	Remote string `json:"remote"` // 对端地址，服务端会话在对端握手前为空
	State  string `json:"state"`  // uninitialized / active / closed
}

func (item *SessionItem) FromInfo(info *session.Info) *SessionItem {
	item.ID = string(info.ID)
	item.Role = info.Role.String()
	item.State = info.State.String()
	if !info.Remote.IsZero() {
		item.Remote = info.Remote.String()
	}
	return item
}

type GetSessionsResponse struct {
	Sessions []SessionItem `json:"sessions"`
	Total    int           `json:"total"`
}

type GetJournalResponse struct {
	Entries []*journal.Entry `json:"entries"`
	Total   int              `json:"total"`
}

// SendMessageRequest 发给对端的应用消息，data 按原样作为字节发送
type SendMessageRequest struct {
	Kind string `json:"kind"`
	Data string `json:"data"`
}

type SendMessageResponse struct {
	Remote string    `json:"remote"`
	Kind   string    `json:"kind"`
	SentAt time.Time `json:"sent_at"`
}

type DisconnectResponse struct {
	Remote  string `json:"remote"`
	Stopped int    `json:"stopped"`
}
