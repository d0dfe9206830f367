package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ippolabs/ippo/internal/coach"
	"github.com/ippolabs/ippo/internal/export"
	"github.com/ippolabs/ippo/internal/goal"
	"github.com/ippolabs/ippo/internal/openai"
	"github.com/ippolabs/ippo/internal/review"
)

type startSessionRequest struct {
	EmployeeID string `json:"employee_id"`
}

type sessionResponse struct {
	SessionID  string           `json:"session_id"`
	EmployeeID string           `json:"employee_id"`
	Name       string           `json:"name"`
	Department string           `json:"department"`
	KPIs       []string         `json:"kpis"`
	Turn       int              `json:"turn"`
	Phase      coach.Phase      `json:"phase"`
	History    []openai.Message `json:"history"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	employee, ok := s.dir.Lookup(req.EmployeeID)
	if !ok {
		writeError(w, http.StatusNotFound, "該当する社員IDが見つかりません。")
		return
	}

	session := s.sessions.Start(employee)
	s.logger.Info("session started", "employee_id", employee.ID, "session_id", session.ID.String())

	writeJSON(w, http.StatusCreated, s.sessionState(session))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(chi.URLParam(r, "employeeID"))
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState(session))
}

func (s *Server) sessionState(session *coach.Session) sessionResponse {
	return sessionResponse{
		SessionID:  session.ID.String(),
		EmployeeID: session.Employee.ID,
		Name:       session.Employee.Name,
		Department: session.Employee.Department,
		KPIs:       s.dir.KPIs(session.Employee.Department),
		Turn:       session.Turn(),
		Phase:      session.Phase(),
		History:    session.History(),
	}
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	session, ok := s.sessions.Get(employeeID)
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	kpis := s.dir.KPIs(session.Employee.Department)
	reply, err := s.coach.HandleTurn(r.Context(), session, kpis, req.Text)
	if err != nil {
		// Nothing was written and the turn did not advance; the client may
		// resubmit the same text.
		s.logger.Error("exchange failed", "employee_id", employeeID, "error", err)
		writeError(w, http.StatusBadGateway, "コーチからの応答を取得できませんでした。もう一度お試しください。")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	s.sessions.End(employeeID)
	s.logger.Info("session ended", "employee_id", employeeID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	result, err := goal.Extract(r.Context(), s.store, employeeID)
	if err != nil {
		s.logger.Error("goal extraction failed", "employee_id", employeeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type postReviewRequest struct {
	TargetEmployeeID string `json:"target_employee_id"`
}

func (s *Server) postReview(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-Employee-ID")
	if callerID == "" {
		writeError(w, http.StatusBadRequest, "X-Employee-ID header required")
		return
	}

	var req postReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.reviewer.Generate(r.Context(), callerID, req.TargetEmployeeID)
	switch {
	case errors.Is(err, review.ErrSelfReview):
		writeError(w, http.StatusForbidden, "cannot review your own transcript")
		return
	case errors.Is(err, review.ErrUnknownEmployee):
		writeError(w, http.StatusNotFound, "該当する社員IDが見つかりません。")
		return
	case err != nil:
		s.logger.Error("review generation failed", "target", req.TargetEmployeeID, "error", err)
		writeError(w, http.StatusBadGateway, "評価レポートを生成できませんでした。もう一度お試しください。")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	history, err := s.store.History(r.Context(), employeeID)
	if err != nil {
		s.logger.Error("transcript read failed", "employee_id", employeeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"messages":    history,
	})
}

func (s *Server) getTranscriptCSV(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	history, err := s.store.History(r.Context(), employeeID)
	if err != nil {
		s.logger.Error("transcript read failed", "employee_id", employeeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="log_%s.csv"`, employeeID))
	if err := export.CSV(w, history); err != nil {
		s.logger.Error("csv export failed", "employee_id", employeeID, "error", err)
	}
}
