// Package api exposes the dashboard view model and its actions over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/conradoqg/statuspage-dashboard/internal/dashboard"
	"github.com/conradoqg/statuspage-dashboard/internal/logx"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

// Controller is the part of the refresh controller the HTTP layer drives.
type Controller interface {
	View() dashboard.ViewModel
	Refresh() bool
	SelectPeriod(p model.Period) error
	SelectProvider(id string)
	ClearProvider()
}

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// Server routes dashboard requests to a Controller.
type Server struct {
	ctrl    Controller
	metrics http.Handler
}

// NewServer builds the server. metrics may be nil, in which case /metrics
// is not routed.
func NewServer(ctrl Controller, metrics http.Handler) *Server {
	return &Server{ctrl: ctrl, metrics: metrics}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.health).Methods("GET")
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods("GET")
	}

	router.HandleFunc("/api/view", s.getView).Methods("GET")
	router.HandleFunc("/api/refresh", s.refresh).Methods("POST")
	router.HandleFunc("/api/period/{days}", s.selectPeriod).Methods("PUT")
	router.HandleFunc("/api/filter/{provider}", s.selectProvider).Methods("PUT")
	router.HandleFunc("/api/filter", s.clearProvider).Methods("DELETE")

	router.Use(requestIDMiddleware, loggingMiddleware)
	return router
}

// RequestID returns the id assigned to the request by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logx.Debugf("request processed method=%s path=%s status=%d duration=%s request_id=%s",
			r.Method, r.URL.Path, rec.status, time.Since(start), RequestID(r.Context()))
	})
}
