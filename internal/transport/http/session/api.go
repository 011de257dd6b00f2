package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/cluster/session"
	"github.com/9triver/clusterrpc/internal/transport/http/util/response"
)

// Manager API 依赖的会话管理能力
type Manager interface {
	Sessions(ctx context.Context) ([]*session.Info, error)
	Send(ctx context.Context, remote cluster.PeerAddress, kind string, data []byte) error
	Disconnect(ctx context.Context, remote cluster.PeerAddress) (int, error)
}

type API struct {
	manager Manager
	journal journal.Repository
}

func NewAPI(manager Manager, repo journal.Repository) *API {
	return &API{manager: manager, journal: repo}
}

// RegisterRoutes 注册会话相关路由
func RegisterRoutes(router *mux.Router, manager Manager, repo journal.Repository) {
	api := NewAPI(manager, repo)
	router.HandleFunc("/sessions", api.handleGetSessions).Methods("GET")
	router.HandleFunc("/sessions/journal", api.handleGetJournal).Methods("GET")
	router.HandleFunc("/peers/{host}/{port}/messages", api.handleSendMessage).Methods("POST")
	router.HandleFunc("/peers/{host}/{port}", api.handleDisconnect).Methods("DELETE")
	logrus.Infof("Session API routes registered: /sessions, /peers")
}

func (api *API) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := api.manager.Sessions(r.Context())
	if err != nil {
		response.InternalError("failed to list sessions: " + err.Error()).WriteJSON(w)
		return
	}

	items := make([]SessionItem, 0, len(infos))
	for _, info := range infos {
		items = append(items, *(&SessionItem{}).FromInfo(info))
	}
	response.Success(GetSessionsResponse{Sessions: items, Total: len(items)}).WriteJSON(w)
}

func (api *API) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	if api.journal == nil {
		response.ServiceUnavailable("session journal is disabled").WriteJSON(w)
		return
	}

	query := r.URL.Query()
	limit := 100
	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.BadRequest("invalid limit: " + s).WriteJSON(w)
			return
		}
		limit = n
	}

	entries, err := api.journal.Query(r.Context(), &journal.QueryOptions{
		SessionID: query.Get("session_id"),
		Remote:    query.Get("remote"),
		Event:     journal.EventType(query.Get("event")),
		Limit:     limit,
	})
	if err != nil {
		logrus.Errorf("Failed to query session journal: %v", err)
		response.InternalError("failed to query journal: " + err.Error()).WriteJSON(w)
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	response.Success(GetJournalResponse{Entries: entries, Total: len(entries)}).WriteJSON(w)
}

func (api *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	remote, err := peerFromVars(mux.Vars(r))
	if err != nil {
		response.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	req := SendMessageRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest("invalid request body: " + err.Error()).WriteJSON(w)
		return
	}
	if req.Kind == "" {
		response.BadRequest("kind is required").WriteJSON(w)
		return
	}

	if err := api.manager.Send(r.Context(), remote, req.Kind, []byte(req.Data)); err != nil {
		logrus.WithField("remote", remote).WithError(err).Warn("Failed to send message")
		switch {
		case errors.Is(err, session.ErrInvalidRequest), errors.Is(err, session.ErrReservedEnvelope):
			response.BadRequest(err.Error()).WriteJSON(w)
		default:
			response.BadGateway(err.Error()).WriteJSON(w)
		}
		return
	}

	response.Success(SendMessageResponse{
		Remote: remote.String(),
		Kind:   req.Kind,
		SentAt: time.Now(),
	}).WriteJSON(w)
}

func (api *API) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	remote, err := peerFromVars(mux.Vars(r))
	if err != nil {
		response.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	n, err := api.manager.Disconnect(r.Context(), remote)
	if err != nil {
		response.InternalError("failed to disconnect: " + err.Error()).WriteJSON(w)
		return
	}
	if n == 0 {
		response.NotFound("no session to " + remote.String()).WriteJSON(w)
		return
	}
	response.Success(DisconnectResponse{Remote: remote.String(), Stopped: n}).WriteJSON(w)
}

func peerFromVars(vars map[string]string) (cluster.PeerAddress, error) {
	host := vars["host"]
	port, err := strconv.ParseInt(vars["port"], 10, 32)
	if host == "" || err != nil || port <= 0 || port > 65535 {
		return cluster.PeerAddress{}, fmt.Errorf("invalid peer %s:%s", host, vars["port"])
	}
	return cluster.PeerAddress{Host: host, Port: int32(port)}, nil
}
