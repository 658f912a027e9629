package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/artpar/voxmeter/app"
	"github.com/artpar/voxmeter/domain/eligibility"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/ports"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

type registerRequest struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		h.writeError(w, http.StatusBadRequest, "user_id must be positive")
		return
	}

	u, err := h.accounts.Register(r.Context(), req.UserID, req.FirstName, req.LastName, req.Username)
	if errors.Is(err, ports.ErrExists) {
		h.writeError(w, http.StatusConflict, "user already registered")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("registration failed")
		h.writeError(w, http.StatusInternalServerError, "try again later")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":    u.ID,
		"vip":        u.VIP,
		"created_at": u.CreatedAt,
	})
}

type subscribeRequest struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	TTSChars       int64     `json:"tts_chars_monthly"`
	STTSeconds     int64     `json:"stt_seconds_monthly"`
	CostLimitCents int64     `json:"cost_limit_cents"`
	AmountCents    int64     `json:"amount_cents"`
	Method         string    `json:"method"`
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	costLimit := money.Unlimited
	if req.CostLimitCents > 0 {
		costLimit = money.FromCents(req.CostLimitCents)
	}
	spec := app.SubscriptionSpec{
		Start:           req.Start,
		End:             req.End,
		TTSLimitChars:   req.TTSChars,
		STTLimitSeconds: req.STTSeconds,
		CostLimit:       costLimit,
		Amount:          money.FromCents(req.AmountCents),
		Method:          req.Method,
	}

	win, err := h.accounts.Subscribe(r.Context(), userID, spec)
	if errors.Is(err, ports.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "user not registered")
		return
	}
	if errors.Is(err, ports.ErrExists) {
		h.writeError(w, http.StatusConflict, "overlapping subscription")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("subscribe failed")
		h.writeError(w, http.StatusInternalServerError, "try again later")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"window_id": win.ID,
		"kind":      win.Kind,
		"start":     win.Start,
		"end":       win.End,
	})
}

type decisionResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
	Status   string `json:"status"`
	Used     int64  `json:"used,omitempty"`
	Limit    int64  `json:"limit,omitempty"`
}

func toDecisionResponse(d eligibility.Decision) decisionResponse {
	resp := decisionResponse{
		Eligible: d.Eligible,
		Reason:   string(d.Reason),
		Status:   d.Status(),
		Used:     d.Used,
		Limit:    d.Limit,
	}
	if d.CostLimit > 0 {
		resp.Used = d.CostUsed.Cents()
		resp.Limit = d.CostLimit.Cents()
	}
	return resp
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	kind := resource.Kind(r.URL.Query().Get("resource"))
	if !kind.Valid() {
		h.writeError(w, http.StatusBadRequest, "resource must be tts_chars or stt_seconds")
		return
	}

	d, err := h.meter.CheckEligibility(r.Context(), userID, kind)
	if err != nil {
		// Storage fault; the decision carries the configured fallback.
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("eligibility check degraded")
	}
	h.writeJSON(w, http.StatusOK, toDecisionResponse(d))
}

type recordUsageRequest struct {
	UserID   int64  `json:"user_id"`
	Resource string `json:"resource"`
	Quantity int64  `json:"quantity"`
}

func (h *Handler) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var req recordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		h.writeError(w, http.StatusBadRequest, "user_id must be positive")
		return
	}
	kind := resource.Kind(req.Resource)
	if !kind.Valid() {
		h.writeError(w, http.StatusBadRequest, "resource must be tts_chars or stt_seconds")
		return
	}
	if req.Quantity < 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be non-negative")
		return
	}

	eventID, err := h.meter.RecordUsage(r.Context(), req.UserID, kind, req.Quantity)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("record usage failed")
		h.writeError(w, http.StatusInternalServerError, "try again later")
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"event_id": eventID})
}

func (h *Handler) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	summary, err := h.meter.GetUsageSummary(r.Context(), userID)
	if errors.Is(err, ports.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "user not registered")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("usage summary failed")
		h.writeError(w, http.StatusInternalServerError, "try again later")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

type speakRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		h.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, d, err := h.assist.Speak(r.Context(), req.UserID, req.Text)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "try again later")
		return
	}
	if !d.Eligible {
		h.writeJSON(w, http.StatusForbidden, toDecisionResponse(d))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

type transcribeRequest struct {
	UserID int64  `json:"user_id"`
	Audio  []byte `json:"audio"` // base64 in JSON
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Audio) == 0 {
		h.writeError(w, http.StatusBadRequest, "audio is required")
		return
	}

	text, d, err := h.assist.Transcribe(r.Context(), req.UserID, req.Audio)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "try again later")
		return
	}
	if !d.Eligible {
		h.writeJSON(w, http.StatusForbidden, toDecisionResponse(d))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
