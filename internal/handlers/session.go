package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pandoras-vault/apiserver/internal/authz"
	"github.com/pandoras-vault/apiserver/internal/services"
	"github.com/pandoras-vault/apiserver/types"
)

// SessionHandler exposes the caller's own progress record. Every route
// resolves the record owner from the verified token subject, so there is no
// lookup-by-arbitrary-id on this path.
type SessionHandler struct {
	progress *services.ProgressService
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(progress *services.ProgressService) *SessionHandler {
	return &SessionHandler{progress: progress}
}

// SessionRouter registers session routes on the given router.
func SessionRouter(r chi.Router, progress *services.ProgressService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSessionHandler(progress)

	r.Use(authMiddleware)
	r.Get("/", handler.GetSession)
	r.Patch("/", handler.UpdateSession)
	r.Delete("/", handler.ResetSession)
	r.Post("/diagnostic/attempts", handler.IncrementDiagnosticAttempt)
	r.Put("/diagnostic", handler.MarkDiagnosticPassed)
	r.Post("/level/advance", handler.AdvanceLevel)
	r.Post("/hints/advance", handler.AdvanceHintStage)
}

type DiagnosticResultRequest struct {
	Passed bool `json:"passed"`
}

type AttemptsResponse struct {
	DiagnosticAttempts int `json:"diagnostic_attempts"`
}

type LevelResponse struct {
	CurrentLevel int `json:"current_level"`
}

type HintStageResponse struct {
	HintStage int `json:"hint_stage"`
}

func (h *SessionHandler) caller(r *http.Request) (authz.Principal, string, error) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		return authz.Principal{}, "", err
	}
	return authz.Subject(subject), subject, nil
}

// GetSession loads the caller's saved progress. A user who never saved
// anything gets a 404, not an empty record.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	progress, err := h.progress.Get(r.Context(), caller, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// UpdateSession upserts the caller's progress; only provided fields change.
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var patch types.ProgressPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	progress, err := h.progress.Upsert(r.Context(), caller, owner, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// ResetSession deletes the caller's progress; absent progress is still a 204.
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.progress.Reset(r.Context(), caller, owner); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IncrementDiagnosticAttempt consumes one of the three placement-test tries.
func (h *SessionHandler) IncrementDiagnosticAttempt(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	attempts, err := h.progress.IncrementDiagnosticAttempt(r.Context(), caller, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttemptsResponse{DiagnosticAttempts: attempts})
}

// MarkDiagnosticPassed records the placement-test outcome.
func (h *SessionHandler) MarkDiagnosticPassed(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req DiagnosticResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	progress, err := h.progress.MarkDiagnosticPassed(r.Context(), caller, owner, req.Passed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// AdvanceLevel moves the caller up one level.
func (h *SessionHandler) AdvanceLevel(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	level, err := h.progress.AdvanceLevel(r.Context(), caller, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{CurrentLevel: level})
}

// AdvanceHintStage escalates the hint stage.
func (h *SessionHandler) AdvanceHintStage(w http.ResponseWriter, r *http.Request) {
	caller, owner, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	stage, err := h.progress.AdvanceHintStage(r.Context(), caller, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HintStageResponse{HintStage: stage})
}
