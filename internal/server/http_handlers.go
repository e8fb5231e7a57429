package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanonone/kektorsnb/pkg/driver"
	"github.com/sanonone/kektorsnb/pkg/engine"
	"github.com/sanonone/kektorsnb/pkg/loader"
	"github.com/sanonone/kektorsnb/pkg/ops"
	"github.com/sanonone/kektorsnb/pkg/queries"
)

// maxBodyBytes bounds request bodies; workloads are the largest.
const maxBodyBytes = 64 << 20

// registerHTTPHandlers sets up the REST API routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux, enablePprof bool) {
	mux.HandleFunc("GET /ops", s.handleListOps)
	mux.HandleFunc("POST /ops/{kind}", s.handleExecute)

	mux.HandleFunc("GET /system/stats", s.handleStats)
	mux.HandleFunc("POST /system/save", s.handleSaveHTTP)
	mux.HandleFunc("POST /system/aof-rewrite", s.handleAOFRewriteHTTP)
	mux.HandleFunc("POST /system/load", s.handleLoad)

	mux.HandleFunc("POST /workloads", s.handleWorkload)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)

	mux.Handle("GET /metrics", promhttp.Handler())

	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeHTTPError(w, http.StatusNotFound, "endpoint not found")
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, StatusResponse{Status: "OK"})
}

// --- Operations ---

func (s *Server) handleListOps(w http.ResponseWriter, r *http.Request) {
	kinds := ops.Kinds()
	out := make([]OperationInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, OperationInfo{Code: k.String(), Name: k.Name(), Update: k.IsUpdate()})
	}
	s.writeHTTPResponse(w, http.StatusOK, out)
}

// handleExecute decodes the body as the parameters of the operation named in
// the path and runs it.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	kind, err := ops.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.writeHTTPError(w, http.StatusNotFound, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}
	op, err := ops.Decode(kind, body)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Dispatcher.Execute(r.Context(), op)
	if err != nil {
		s.writeHTTPError(w, statusFor(err), err.Error())
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

// statusFor maps the operation error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, queries.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queries.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, queries.ErrCoercion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// --- System ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, s.Engine.Stats())
}

func (s *Server) handleSaveHTTP(w http.ResponseWriter, r *http.Request) {
	meta, err := s.Engine.SaveSnapshot()
	if err != nil {
		s.writeAdminError(w, "SAVE", err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, SaveResponse{Status: "OK", Snapshot: meta})
}

func (s *Server) handleAOFRewriteHTTP(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RewriteAOF(); err != nil {
		s.writeAdminError(w, "AOF rewrite", err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, StatusResponse{Status: "OK", Message: "AOF rewrite completed"})
}

func (s *Server) writeAdminError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, engine.ErrInMemory) {
		s.writeHTTPError(w, http.StatusConflict, err.Error())
		return
	}
	slog.Error("CRITICAL: administrative command failed", "command", what, "error", err)
	s.writeHTTPError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed: %v", what, err))
}

// --- Background tasks ---

// handleLoad starts a bulk load of a dataset directory readable by the
// server process.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Root == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "root is required")
		return
	}
	batch := req.BatchSize
	if batch <= 0 {
		batch = s.loaderBatch
	}

	task := s.taskManager.Go("load", func(ctx context.Context, t *Task) (any, error) {
		t.SetProgress("loading " + req.Root)
		l := loader.New(s.Engine, batch)
		if err := l.LoadAll(ctx, req.Root); err != nil {
			return nil, err
		}
		return LoadResult{Counts: l.Counts()}, nil
	})
	s.writeHTTPResponse(w, http.StatusAccepted, TaskResponse{TaskID: task.ID, Status: string(TaskStatusStarted)})
}

// handleWorkload validates every operation up front and runs the workload in
// the background.
func (s *Server) handleWorkload(w http.ResponseWriter, r *http.Request) {
	var req WorkloadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	workload := make([]ops.Operation, 0, len(req.Operations))
	for i, e := range req.Operations {
		op, err := ops.Decode(e.Kind, e.Params)
		if err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("operation %d: %v", i, err))
			return
		}
		workload = append(workload, op)
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.driverWorkers
	}

	task := s.taskManager.Go("workload", func(ctx context.Context, t *Task) (any, error) {
		t.SetProgress(fmt.Sprintf("running %d operations", len(workload)))
		report, err := driver.New(s.Dispatcher, workers).Run(ctx, workload)
		if err != nil {
			return nil, err
		}
		return report, nil
	})
	s.writeHTTPResponse(w, http.StatusAccepted, TaskResponse{TaskID: task.ID, Status: string(TaskStatusStarted)})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, s.taskManager.List())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskManager.GetTask(r.PathValue("id"))
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.View())
}

// --- HTTP response helpers ---

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
