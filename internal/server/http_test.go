package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sanonone/kektorsnb/pkg/engine"
	"github.com/sanonone/kektorsnb/pkg/graph"
	"github.com/sanonone/kektorsnb/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-secret-token"

type testServer struct {
	*httptest.Server
	srv *Server
}

func newTestServer(t *testing.T, opts engine.Options) *testServer {
	t.Helper()
	eng, err := engine.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	require.NoError(t, eng.Update(context.Background(), func(w graph.Writer) error {
		return w.AddVertex(graph.Vertex{Label: schema.Place, ID: 10, Props: graph.Props{schema.Name: "Rome"}})
	}))

	s, err := NewServer(eng, ":0", Options{AuthToken: testToken, LoaderBatchSize: 100, DriverWorkers: 2})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.taskManager.Stop()
	})
	return &testServer{Server: ts, srv: s}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealthzAndAuth(t *testing.T) {
	ts := newTestServer(t, engine.InMemoryOptions())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ops")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/ops", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, body := ts.do(t, http.MethodGet, "/ops", nil)
	assert.Equal(t, http.StatusOK, status)
	var infos []OperationInfo
	require.NoError(t, json.Unmarshal(body, &infos))
	assert.Len(t, infos, 29)
	assert.Equal(t, OperationInfo{Code: "IS1", Name: "person_profile"}, infos[0])
}

func TestExecuteOperations(t *testing.T) {
	ts := newTestServer(t, engine.InMemoryOptions())

	status, body := ts.do(t, http.MethodPost, "/ops/INS1",
		`{"personId":1,"personFirstName":"Ada","personLastName":"Rossi","cityId":10}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"kind":"INS1","count":0}`, string(body))

	status, body = ts.do(t, http.MethodPost, "/ops/person_profile", `{"personId":1}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var res struct {
		Kind    string `json:"kind"`
		Payload struct {
			FirstName string `json:"firstName"`
			CityID    int64  `json:"cityId"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "IS1", res.Kind)
	assert.Equal(t, "Ada", res.Payload.FirstName)
	assert.Equal(t, int64(10), res.Payload.CityID)

	cases := []struct {
		name, path, body string
		want             int
	}{
		{"missing person", "/ops/IS1", `{"personId":42}`, http.StatusNotFound},
		{"unknown kind", "/ops/IC99", `{}`, http.StatusNotFound},
		{"unknown field", "/ops/IS1", `{"personId":1,"x":1}`, http.StatusBadRequest},
		{"malformed json", "/ops/IS1", `{`, http.StatusBadRequest},
		{"invalid parameter", "/ops/INS8", `{"person1Id":1,"person2Id":1}`, http.StatusBadRequest},
		{"duplicate person", "/ops/INS1", `{"personId":1,"personFirstName":"A","personLastName":"B","cityId":10}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := ts.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.want, status, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}

	status, _ = ts.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSystemEndpoints(t *testing.T) {
	mem := newTestServer(t, engine.InMemoryOptions())
	status, _ := mem.do(t, http.MethodPost, "/system/save", nil)
	assert.Equal(t, http.StatusConflict, status)

	ts := newTestServer(t, engine.DefaultOptions(t.TempDir()))

	status, body := ts.do(t, http.MethodGet, "/system/stats", nil)
	require.Equal(t, http.StatusOK, status)
	var stats engine.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, int64(1), stats.Vertices[schema.Place])
	assert.True(t, stats.Persistent)

	status, body = ts.do(t, http.MethodPost, "/system/save", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var saved SaveResponse
	require.NoError(t, json.Unmarshal(body, &saved))
	assert.Equal(t, int64(1), saved.Snapshot.Vertices)

	status, body = ts.do(t, http.MethodPost, "/system/aof-rewrite", nil)
	assert.Equal(t, http.StatusOK, status, string(body))

	ts.do(t, http.MethodPost, "/ops/IS1", `{"personId":1}`)
	status, body = ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "kektorsnb_operations_total")
}

func waitTask(t *testing.T, ts *testServer, id string) TaskView {
	t.Helper()
	var view TaskView
	require.Eventually(t, func() bool {
		status, body := ts.do(t, http.MethodGet, "/tasks/"+id, nil)
		if status != http.StatusOK {
			return false
		}
		view = TaskView{}
		require.NoError(t, json.Unmarshal(body, &view))
		return view.Status == TaskStatusCompleted || view.Status == TaskStatusFailed
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

func TestLoadTask(t *testing.T) {
	ts := newTestServer(t, engine.InMemoryOptions())

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "static"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dynamic"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dynamic", "person_0_0.csv"),
		[]byte("id|firstName|lastName|gender|birthday|creationDate|locationIP|browserUsed|language|email\n"+
			"7|Eve|Neri|female|0|0|1.1.1.1|Safari|it|\n"), 0o644))

	status, body := ts.do(t, http.MethodPost, "/system/load", LoadRequest{Root: root})
	require.Equal(t, http.StatusAccepted, status, string(body))
	var accepted TaskResponse
	require.NoError(t, json.Unmarshal(body, &accepted))

	view := waitTask(t, ts, accepted.TaskID)
	require.Equal(t, TaskStatusCompleted, view.Status, view.Error)
	assert.Equal(t, "load", view.Kind)

	status, _ = ts.do(t, http.MethodPost, "/ops/IS1", `{"personId":7}`)
	assert.Equal(t, http.StatusOK, status)

	status, body = ts.do(t, http.MethodPost, "/system/load", LoadRequest{Root: t.TempDir()})
	require.Equal(t, http.StatusAccepted, status)
	require.NoError(t, json.Unmarshal(body, &accepted))
	view = waitTask(t, ts, accepted.TaskID)
	assert.Equal(t, TaskStatusFailed, view.Status)
	assert.Contains(t, view.Error, "static/ and dynamic/")

	status, _ = ts.do(t, http.MethodPost, "/system/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWorkloadTask(t *testing.T) {
	ts := newTestServer(t, engine.InMemoryOptions())

	status, body := ts.do(t, http.MethodPost, "/workloads", `{"workers":1,"operations":[
		{"kind":"INS1","params":{"personId":1,"personFirstName":"Ada","personLastName":"Rossi","cityId":10}},
		{"kind":"IS1","params":{"personId":1}},
		{"kind":"IS1","params":{"personId":2}}
	]}`)
	require.Equal(t, http.StatusAccepted, status, string(body))
	var accepted TaskResponse
	require.NoError(t, json.Unmarshal(body, &accepted))

	view := waitTask(t, ts, accepted.TaskID)
	require.Equal(t, TaskStatusCompleted, view.Status, view.Error)
	report := view.Result.(map[string]any)
	assert.EqualValues(t, 3, report["operations"])
	assert.EqualValues(t, 1, report["errors"])

	status, _ = ts.do(t, http.MethodPost, "/workloads", `{"operations":[{"kind":"IS1","params":{"bogus":1}}]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), accepted.TaskID)

	status, _ = ts.do(t, http.MethodGet, "/tasks/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRecoveryMiddleware(t *testing.T) {
	s := &Server{}
	h := requestIDMiddleware(s.RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"error":"internal server error (request req-42)"}`, rec.Body.String())
}

func TestRequestIDAssigned(t *testing.T) {
	ts := newTestServer(t, engine.InMemoryOptions())
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)
}
