package httpapi

import (
	"encoding/json"
	"net/http"

	"example.com/policy-portal/internal/eval"
)

type EvalHandler struct{ Engine *eval.Engine }

func (h *EvalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req eval.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad request", err)
		return
	}
	decision, err := h.Engine.Evaluate(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "evaluation failed", nil)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}
