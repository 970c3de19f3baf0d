package http

import (
	"net/http"

	"budgetplanner/internal/core"
)

type settingsResponse struct {
	core.Settings
	UserName string `json:"userName"`
}

func (s *Server) settingsResponse() settingsResponse {
	return settingsResponse{
		Settings: s.session.Settings(),
		UserName: s.session.UserName(),
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.settingsResponse()).Write(w)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := parseRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondSettings(w, r, s.session.SetSavingsGoal(r.Context(), req.Goal))
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := parseRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondSettings(w, r, s.session.SetCurrency(r.Context(), req.Currency))
}

func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request) {
	var req monthRequest
	if err := parseRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondSettings(w, r, s.session.SetSelectedMonth(r.Context(), req.Month))
}

func (s *Server) handleSetUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := parseRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondSettings(w, r, s.session.SetUserName(r.Context(), sanitizeInput(req.Name)))
}

func (s *Server) respondSettings(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(s.settingsResponse()).Write(w)
}
