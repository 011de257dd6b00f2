package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9triver/clusterrpc/internal/cluster"
	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/cluster/session"
)

type sentMessage struct {
	remote cluster.PeerAddress
	kind   string
	data   []byte
}

type stubManager struct {
	infos   []*session.Info
	sendErr error
	sent    []sentMessage
	stopped map[cluster.PeerAddress]int
}

func (m *stubManager) Sessions(context.Context) ([]*session.Info, error) {
	return m.infos, nil
}

func (m *stubManager) Send(_ context.Context, remote cluster.PeerAddress, kind string, data []byte) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{remote, kind, data})
	return nil
}

func (m *stubManager) Disconnect(_ context.Context, remote cluster.PeerAddress) (int, error) {
	return m.stopped[remote], nil
}

type stubJournal struct {
	entries []*journal.Entry
	last    *journal.QueryOptions
}

func (j *stubJournal) Record(context.Context, *journal.Entry) error { return nil }

func (j *stubJournal) Query(_ context.Context, opts *journal.QueryOptions) ([]*journal.Entry, error) {
	j.last = opts
	return j.entries, nil
}

func (j *stubJournal) Close() error { return nil }

type envelope struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func serve(t *testing.T, mgr Manager, repo journal.Repository, method, path, body string) (int, envelope) {
	t.Helper()
	router := mux.NewRouter()
	RegisterRoutes(router, mgr, repo)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestGetSessions(t *testing.T) {
	mgr := &stubManager{infos: []*session.Info{
		{ID: "s1", Role: cluster.RoleClient, Remote: cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}, State: cluster.StateActive},
		{ID: "s2", Role: cluster.RoleServer, State: cluster.StateActive},
	}}

	code, env := serve(t, mgr, nil, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, code)

	var resp GetSessionsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, SessionItem{ID: "s1", Role: "client", Remote: "10.0.0.2:9090", State: "active"}, resp.Sessions[0])
	assert.Empty(t, resp.Sessions[1].Remote)
}

func TestGetJournal(t *testing.T) {
	repo := &stubJournal{entries: []*journal.Entry{{ID: 1, SessionID: "s1", Event: journal.EventCreated}}}

	code, env := serve(t, &stubManager{}, repo, http.MethodGet, "/sessions/journal?limit=5&session_id=s1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, repo.last.Limit)
	assert.Equal(t, "s1", repo.last.SessionID)

	var resp GetJournalResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Total)

	code, _ = serve(t, &stubManager{}, repo, http.MethodGet, "/sessions/journal?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, &stubManager{}, nil, http.MethodGet, "/sessions/journal", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSendMessage(t *testing.T) {
	mgr := &stubManager{}

	code, _ := serve(t, mgr, nil, http.MethodPost, "/peers/10.0.0.2/9090/messages", `{"kind":"rule","data":"r1"}`)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, mgr.sent, 1)
	assert.Equal(t, cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}, mgr.sent[0].remote)
	assert.Equal(t, "rule", mgr.sent[0].kind)
	assert.Equal(t, []byte("r1"), mgr.sent[0].data)

	code, _ = serve(t, mgr, nil, http.MethodPost, "/peers/10.0.0.2/abc/messages", `{"kind":"rule"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, mgr, nil, http.MethodPost, "/peers/10.0.0.2/9090/messages", `{"data":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSendMessage_SessionFailure(t *testing.T) {
	mgr := &stubManager{sendErr: errors.New("connection refused")}

	code, env := serve(t, mgr, nil, http.MethodPost, "/peers/10.0.0.2/9090/messages", `{"kind":"rule"}`)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, env.Error, "connection refused")
}

func TestDisconnect(t *testing.T) {
	peer := cluster.PeerAddress{Host: "10.0.0.2", Port: 9090}
	mgr := &stubManager{stopped: map[cluster.PeerAddress]int{peer: 1}}

	code, env := serve(t, mgr, nil, http.MethodDelete, "/peers/10.0.0.2/9090", "")
	require.Equal(t, http.StatusOK, code)
	var resp DisconnectResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Stopped)

	code, _ = serve(t, mgr, nil, http.MethodDelete, "/peers/10.0.0.3/9090", "")
	assert.Equal(t, http.StatusNotFound, code)
}
