package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pandoras-vault/apiserver/internal/authz"
	"github.com/pandoras-vault/apiserver/internal/services"
	"github.com/pandoras-vault/apiserver/types"
)

const serviceKeyHeader = "X-Service-Key"

// OperatorHandler exposes the privileged variants of the session operations.
// These run under the backend's own service identity and skip the ownership
// comparison, but domain validation still applies: a privileged caller cannot
// persist an illegal state either.
type OperatorHandler struct {
	progress *services.ProgressService
}

// NewOperatorHandler constructs an OperatorHandler.
func NewOperatorHandler(progress *services.ProgressService) *OperatorHandler {
	return &OperatorHandler{progress: progress}
}

// OperatorRouter registers the privileged session routes, guarded by the
// service key.
func OperatorRouter(r chi.Router, progress *services.ProgressService, serviceKey string) {
	handler := NewOperatorHandler(progress)

	r.Use(RequireServiceKey(serviceKey))
	r.Route("/users/{userID}/session", func(r chi.Router) {
		r.Get("/", handler.GetSession)
		r.Patch("/", handler.UpdateSession)
		r.Delete("/", handler.ResetSession)
		r.Post("/diagnostic/attempts", handler.IncrementDiagnosticAttempt)
		r.Put("/diagnostic", handler.MarkDiagnosticPassed)
		r.Post("/level/advance", handler.AdvanceLevel)
		r.Post("/hints/advance", handler.AdvanceHintStage)
	})
}

// RequireServiceKey authenticates the backend's own service identity. An
// unset key disables the operator surface entirely.
func RequireServiceKey(serviceKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := strings.TrimSpace(r.Header.Get(serviceKeyHeader))
			if serviceKey == "" || presented == "" ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(serviceKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ownerFromURL(r *http.Request) (string, bool) {
	owner := strings.TrimSpace(chi.URLParam(r, "userID"))
	return owner, owner != ""
}

func (h *OperatorHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	progress, err := h.progress.Get(r.Context(), authz.Operator(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *OperatorHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
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

	progress, err := h.progress.Upsert(r.Context(), authz.Operator(), owner, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *OperatorHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.progress.Reset(r.Context(), authz.Operator(), owner); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OperatorHandler) IncrementDiagnosticAttempt(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	attempts, err := h.progress.IncrementDiagnosticAttempt(r.Context(), authz.Operator(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttemptsResponse{DiagnosticAttempts: attempts})
}

func (h *OperatorHandler) MarkDiagnosticPassed(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var req DiagnosticResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	progress, err := h.progress.MarkDiagnosticPassed(r.Context(), authz.Operator(), owner, req.Passed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *OperatorHandler) AdvanceLevel(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	level, err := h.progress.AdvanceLevel(r.Context(), authz.Operator(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{CurrentLevel: level})
}

func (h *OperatorHandler) AdvanceHintStage(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	stage, err := h.progress.AdvanceHintStage(r.Context(), authz.Operator(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HintStageResponse{HintStage: stage})
}
