package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/jsagent/system/cluster"
	"github.com/r3e-network/jsagent/system/metrics"
)

func newTestDeps(t *testing.T) (Deps, *cluster.Cluster) {
	t.Helper()
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
	cl := cluster.New("test-cluster", m, nil)
	return Deps{
		Clusters: map[string]*cluster.Cluster{"test-cluster": cl},
		Metrics:  m,
		Hub:      NewHub(),
	}, cl
}

func TestMetricsRouteIsUnauthenticated(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Secret = []byte("s3cret")
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAgentsRequiresAuthWhenSecretSet(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Secret = []byte("s3cret")
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/clusters/test-cluster/agents", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAgentsReturnsClusterAgents(t *testing.T) {
	deps, cl := newTestDeps(t)
	_, err := cl.CreateAgent(context.Background(), cluster.Behavior{})
	require.NoError(t, err)

	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/clusters/test-cluster/agents", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Agents []string `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Agents, 1)
}

func TestListAgentsUnknownClusterIs404(t *testing.T) {
	deps, _ := newTestDeps(t)
	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/clusters/nope/agents", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentQueueDepthUnknownAgentIs404(t *testing.T) {
	deps, _ := newTestDeps(t)
	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/clusters/test-cluster/agents/nope/queue", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentQueueDepthReturnsBands(t *testing.T) {
	deps, cl := newTestDeps(t)
	_, err := cl.CreateAgent(context.Background(), cluster.Behavior{})
	require.NoError(t, err)
	agentID := cl.AgentIDs()[0]

	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/clusters/test-cluster/agents/"+agentID+"/queue", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		High   int `json:"high"`
		Medium int `json:"medium"`
		Low    int `json:"low"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.High)
}

func TestStreamEventsRelaysHubPublish(t *testing.T) {
	deps, _ := newTestDeps(t)
	r := NewRouter(deps)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deps.Hub.Publish(Event{Kind: EventAgentCreated, AgentID: "a1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, EventAgentCreated, evt.Kind)
	assert.Equal(t, "a1", evt.AgentID)
}
