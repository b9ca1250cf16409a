package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparshsam/wager-ai-assistant/internal/api"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/middleware"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
	"github.com/sparshsam/wager-ai-assistant/internal/service"
)

// Server exposes the dashboard's JSON API. Everything under /api except the
// auth endpoints requires a valid session.
type Server struct {
	authSvc     *service.AuthService
	scheduleSvc *service.ScheduleService
	scriptSvc   *service.ScriptService
	analysisSvc *service.AnalysisService
	executeSvc  *service.ExecutionService
	pickSvc     *service.PickService
	uploadSvc   *service.UploadService
	llm         *api.AbacusClient
	logger      zerolog.Logger
}

func New(
	authSvc *service.AuthService,
	scheduleSvc *service.ScheduleService,
	scriptSvc *service.ScriptService,
	analysisSvc *service.AnalysisService,
	executeSvc *service.ExecutionService,
	pickSvc *service.PickService,
	uploadSvc *service.UploadService,
	llm *api.AbacusClient,
	logger zerolog.Logger,
) *Server {
	return &Server{
		authSvc:     authSvc,
		scheduleSvc: scheduleSvc,
		scriptSvc:   scriptSvc,
		analysisSvc: analysisSvc,
		executeSvc:  executeSvc,
		pickSvc:     pickSvc,
		uploadSvc:   uploadSvc,
		llm:         llm,
		logger:      logger,
	}
}

// Register wires every route onto mux. Authenticated routes are wrapped with
// the session middleware.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	authed := middleware.Session(s.authSvc, s.logger)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}

	protect("POST /api/auth/logout", s.handleLogout)

	protect("GET /api/schedules", s.handleListSchedules)
	protect("POST /api/schedules", s.handleCreateSchedule)
	protect("PUT /api/schedules/{id}", s.handleUpdateSchedule)
	protect("DELETE /api/schedules/{id}", s.handleDeleteSchedule)
	protect("POST /api/schedules/upload", s.handleUploadSchedules)

	protect("GET /api/scripts", s.handleListScripts)
	protect("POST /api/scripts", s.handleCreateScript)
	protect("GET /api/scripts/{id}", s.handleGetScript)
	protect("PUT /api/scripts/{id}", s.handleUpdateScript)
	protect("DELETE /api/scripts/{id}", s.handleDeleteScript)
	protect("POST /api/scripts/upload", s.handleUploadScript)

	protect("GET /api/upload-data", s.handleActiveUploadData)
	protect("POST /api/upload-data", s.handleStoreUploadData)

	protect("POST /api/generate-cis", s.handleGenerateCIS)
	protect("POST /api/validate-preview", s.handleValidatePreview)
	protect("POST /api/execute-betting-script", s.handleExecuteScript)

	protect("GET /api/picks", s.handleListPicks)
	protect("POST /api/log-pick", s.handleLogPick)
	protect("PUT /api/picks/{id}", s.handleUpdatePick)
	protect("DELETE /api/picks/{id}", s.handleDeletePick)
	protect("GET /api/bankroll/history", s.handleBankrollHistory)

	protect("GET /api/rate-limit", s.handleRateLimit)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.authSvc.Signup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, "Failed to create account")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.authSvc.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, "Failed to log in")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authSvc.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		s.writeError(w, r, err, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	overview, err := s.scheduleSvc.List(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch schedules")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in service.CreateScheduleInput
	if !decodeBody(w, r, &in) {
		return
	}
	schedule, err := s.scheduleSvc.Create(r.Context(), middleware.PrincipalFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err, "Failed to create schedule")
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var patch service.SchedulePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	schedule, err := s.scheduleSvc.Update(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err, "Failed to update schedule")
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduleSvc.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "Failed to delete schedule")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type scheduleUploadRequest struct {
	FileName string                `json:"fileName"`
	Rows     []service.ScheduleRow `json:"rows"`
}

func (s *Server) handleUploadSchedules(w http.ResponseWriter, r *http.Request) {
	var req scheduleUploadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := s.scheduleSvc.UploadBatch(r.Context(), middleware.PrincipalFrom(r.Context()), req.FileName, req.Rows)
	if err != nil {
		s.writeError(w, r, err, "Failed to process schedule upload")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	overview, err := s.scriptSvc.List(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch scripts")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	var in service.CreateScriptInput
	if !decodeBody(w, r, &in) {
		return
	}
	script, err := s.scriptSvc.Create(r.Context(), middleware.PrincipalFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err, "Failed to create script")
		return
	}
	writeJSON(w, http.StatusCreated, script)
}

func (s *Server) handleGetScript(w http.ResponseWriter, r *http.Request) {
	script, err := s.scriptSvc.Get(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch script")
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *Server) handleUpdateScript(w http.ResponseWriter, r *http.Request) {
	var patch service.ScriptPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	script, err := s.scriptSvc.Update(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err, "Failed to update script")
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *Server) handleDeleteScript(w http.ResponseWriter, r *http.Request) {
	if err := s.scriptSvc.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "Failed to delete script")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUploadScript(w http.ResponseWriter, r *http.Request) {
	var in service.ScriptUploadInput
	if !decodeBody(w, r, &in) {
		return
	}
	result, err := s.scriptSvc.Upload(r.Context(), middleware.PrincipalFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err, "Failed to process script upload")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleActiveUploadData(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.uploadSvc.Active(
		r.Context(),
		middleware.PrincipalFrom(r.Context()),
		r.URL.Query().Get("sport"),
		r.URL.Query().Get("league"),
	)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch upload data")
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}

func (s *Server) handleStoreUploadData(w http.ResponseWriter, r *http.Request) {
	var req service.UploadDataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	upload, err := s.uploadSvc.Store(r.Context(), middleware.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err, "Failed to store upload data")
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

func (s *Server) handleGenerateCIS(w http.ResponseWriter, r *http.Request) {
	var req service.CISRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.analysisSvc.GenerateCIS(r.Context(), middleware.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err, "Failed to generate CIS analysis")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type validatePreviewRequest struct {
	Preview string `json:"preview"`
}

func (s *Server) handleValidatePreview(w http.ResponseWriter, r *http.Request) {
	var req validatePreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, service.ValidateInjuryMentions(req.Preview))
}

func (s *Server) handleExecuteScript(w http.ResponseWriter, r *http.Request) {
	var req service.ExecutionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.executeSvc.Execute(r.Context(), middleware.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err, "Failed to execute betting script")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListPicks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.PickFilter{
		Sport:   q.Get("sport"),
		League:  q.Get("league"),
		BetType: q.Get("betType"),
		Result:  q.Get("result"),
	}
	if from, ok := parseQueryDate(q.Get("dateFrom")); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseQueryDate(q.Get("dateTo")); ok {
		filter.DateTo = &to
	}

	list, err := s.pickSvc.List(r.Context(), middleware.PrincipalFrom(r.Context()), filter)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch picks")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleLogPick(w http.ResponseWriter, r *http.Request) {
	var req service.LogPickRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pick, err := s.pickSvc.Log(r.Context(), middleware.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err, "Failed to log pick")
		return
	}
	writeJSON(w, http.StatusCreated, pick)
}

func (s *Server) handleUpdatePick(w http.ResponseWriter, r *http.Request) {
	var patch service.PickPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	pick, err := s.pickSvc.Update(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err, "Failed to update pick")
		return
	}
	writeJSON(w, http.StatusOK, pick)
}

func (s *Server) handleDeletePick(w http.ResponseWriter, r *http.Request) {
	if err := s.pickSvc.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "Failed to delete pick")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBankrollHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.pickSvc.History(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch bankroll history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.llm.GetRateLimitInfo())
}

func parseQueryDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors to status codes. Anything unclassified is a
// 500 with the handler's generic message; internals stay in the logs.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var reqErr *domain.RequestError
	message := fallback

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "Unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	}

	if status != http.StatusInternalServerError && status != http.StatusUnauthorized {
		if errors.As(err, &reqErr) {
			message = reqErr.Message
		} else {
			message = err.Error()
		}
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	writeJSON(w, status, map[string]string{"error": message})
}
