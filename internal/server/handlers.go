package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/stream"
)

type electResponse struct {
	Keyspace       string                   `json:"keyspace"`
	Operation      stream.Operation         `json:"operation"`
	ColumnFamilies election.ColumnFamilySet `json:"column_families"`
}

type viewCongruencyResponse struct {
	Keyspace  string `json:"keyspace"`
	View      string `json:"view"`
	Congruent bool   `json:"congruent"`
}

type operationInfo struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Unconditional bool   `json:"includes_views_unconditionally"`
}

func middlewareRequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	log := logger.From(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}
	writeError(w, r, status, code, err.Error())
}

// operation reads the operation query parameter. Labels are matched strictly.
func (s *Server) operation(w http.ResponseWriter, r *http.Request) (stream.Operation, bool) {
	label := r.URL.Query().Get("operation")
	if label == "" {
		writeError(w, r, http.StatusBadRequest, "missing_operation", "operation query parameter is required")
		return stream.Other, false
	}
	op, err := stream.ParseStrict(label)
	if err != nil {
		s.fail(w, r, err)
		return stream.Other, false
	}
	return op, true
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) operations(w http.ResponseWriter, r *http.Request) {
	ops := stream.Operations()
	out := make([]operationInfo, 0, len(ops))
	for _, op := range ops {
		out = append(out, operationInfo{Name: op.Name(), Label: op.Label(), Unconditional: op.IncludesViewsUnconditionally()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) keyspaces(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Keyspaces(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"keyspaces": names})
}

func (s *Server) elect(w http.ResponseWriter, r *http.Request) {
	op, ok := s.operation(w, r)
	if !ok {
		return
	}
	keyspace := chi.URLParam(r, "keyspace")

	set, err := s.svc.ElectColumnFamilies(r.Context(), keyspace, op)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, electResponse{Keyspace: keyspace, Operation: op, ColumnFamilies: set})
}

func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	op, ok := s.operation(w, r)
	if !ok {
		return
	}

	exp, err := s.svc.Explain(r.Context(), chi.URLParam(r, "keyspace"), op)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) congruency(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Congruency(r.Context(), chi.URLParam(r, "keyspace"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) viewCongruency(w http.ResponseWriter, r *http.Request) {
	keyspace := chi.URLParam(r, "keyspace")
	view := chi.URLParam(r, "view")

	congruent, err := s.svc.IsViewCongruentToBase(r.Context(), keyspace, view)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCongruencyResponse{Keyspace: keyspace, View: view, Congruent: congruent})
}
