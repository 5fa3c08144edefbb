package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/conradoqg/statuspage-dashboard/internal/logx"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/refresh"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Warnf("failed to encode response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getView(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, s.ctrl.View())
}

// refresh answers 202 when a cycle was started and 409 when one is already
// running; the running cycle is left alone either way.
func (s *Server) refresh(w http.ResponseWriter, _ *http.Request) {
	if !s.ctrl.Refresh() {
		respondWithError(w, http.StatusConflict, refresh.ErrRefreshInFlight.Error())
		return
	}
	respondWithJSON(w, http.StatusAccepted, s.ctrl.View())
}

func (s *Server) selectPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := model.ParsePeriod(mux.Vars(r)["days"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctrl.SelectPeriod(p); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, s.ctrl.View())
}

func (s *Server) selectProvider(w http.ResponseWriter, r *http.Request) {
	s.ctrl.SelectProvider(mux.Vars(r)["provider"])
	respondWithJSON(w, http.StatusOK, s.ctrl.View())
}

func (s *Server) clearProvider(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.ClearProvider()
	respondWithJSON(w, http.StatusOK, s.ctrl.View())
}
