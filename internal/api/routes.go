package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/advisor"
	"github.com/barathraj048/Ai-counsler/internal/escalation"
	"github.com/barathraj048/Ai-counsler/internal/interview"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/session"
	"github.com/barathraj048/Ai-counsler/internal/shortlist"
)

// #region request-types

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

type shortlistRequest struct {
	Candidates []shortlist.Candidate      `json:"candidates"`
	Weights    shortlist.PriorityWeights `json:"weights"`
	Profile    shortlist.Profile         `json:"profile"`
}

type messageRequest struct {
	Message string               `json:"message"`
	History []escalation.Message `json:"history"`
}

type discoveryResponse struct {
	Universities []shortlist.Candidate `json:"universities"`
	Failure      oracle.FailureReason  `json:"failure,omitempty"`
}

// #endregion request-types

// #region interview

// StartInterview handles POST /v1/interview/{sessionID}/start.
func (h *Handler) StartInterview(w http.ResponseWriter, r *http.Request) {
	step, _, err := h.core.StartInterview(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.interviewError(w, err)
		return
	}
	JSON(w, http.StatusOK, step)
}

// AdvanceInterview handles POST /v1/interview/{sessionID}/answer.
func (h *Handler) AdvanceInterview(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	step, _, err := h.core.AdvanceInterview(r.Context(), chi.URLParam(r, "sessionID"), req.QuestionID, req.Answer)
	if errors.Is(err, session.ErrSessionCompleted) {
		JSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "step": step})
		return
	}
	if err != nil {
		h.interviewError(w, err)
		return
	}
	JSON(w, http.StatusOK, step)
}

func (h *Handler) interviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrInvalidAnswer):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusServiceUnavailable, "request ended before the step was decided")
	default:
		h.logger.Error("interview step failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "interview step failed")
	}
}

// #endregion interview

// #region shortlist

// Discover handles POST /v1/discovery. An empty pool is a normal answer;
// transport and schema failures are a bad gateway.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	var p shortlist.Profile
	if err := decode(w, r, &p); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.core.DiscoverCandidates(r.Context(), p)
	if pool, ok := res.Value(); ok {
		JSON(w, http.StatusOK, discoveryResponse{Universities: pool})
		return
	}
	f := res.Failure()
	if f.Reason == oracle.FailEmptyPool {
		JSON(w, http.StatusOK, discoveryResponse{Universities: []shortlist.Candidate{}, Failure: f.Reason})
		return
	}
	errorWithReason(w, http.StatusBadGateway, "university discovery is unavailable, try again later", string(f.Reason))
}

// Shortlist handles POST /v1/shortlist. Insufficient matches is a 422 with
// the actionable message.
func (h *Handler) Shortlist(w http.ResponseWriter, r *http.Request) {
	var req shortlistRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, _, err := h.core.RankCandidates(r.Context(), req.Candidates, req.Weights, req.Profile)
	switch {
	case errors.Is(err, oracle.ErrInsufficientMatches):
		errorWithReason(w, http.StatusUnprocessableEntity, err.Error(), string(oracle.FailInsufficientMatches))
	case errors.Is(err, shortlist.ErrInvalidWeights):
		Error(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("shortlist failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "shortlist failed")
	default:
		JSON(w, http.StatusOK, res)
	}
}

// #endregion shortlist

// #region chat

// Classify handles POST /v1/chat/{sessionID}/classify.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	a, _ := h.core.ClassifyMessage(r.Context(), chi.URLParam(r, "sessionID"), req.Message, req.History)
	JSON(w, http.StatusOK, a)
}

// Turn handles POST /v1/chat/{sessionID}/turn.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	turn, _ := h.core.HandleTurn(r.Context(), chi.URLParam(r, "sessionID"), req.Message, req.History)
	JSON(w, http.StatusOK, turn)
}

// Trend handles GET /v1/chat/{sessionID}/trend.
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	st, _ := h.core.EvaluateTrend(r.Context(), chi.URLParam(r, "sessionID"))
	JSON(w, http.StatusOK, st)
}

// ForgetConversation handles DELETE /v1/chat/{sessionID}.
func (h *Handler) ForgetConversation(w http.ResponseWriter, r *http.Request) {
	h.core.ForgetConversation(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// #endregion chat

// #region advisor

// ImprovementTasks handles POST /v1/advisor/improvement-tasks.
func (h *Handler) ImprovementTasks(w http.ResponseWriter, r *http.Request) {
	var p advisor.Profile
	if err := decode(w, r, &p); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, h.core.ImprovementTasks(r.Context(), p))
}

// Dashboard handles POST /v1/advisor/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var p advisor.Profile
	if err := decode(w, r, &p); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, h.core.Dashboard(r.Context(), p))
}

// Suggestions handles POST /v1/advisor/suggestions.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, h.core.SuggestTasks(r.Context(), req.Message, req.History))
}

// #endregion advisor
