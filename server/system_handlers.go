package server

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", App: s.config.GetAppName()})
	}
}
