package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"example.com/policy-portal/internal/lifecycle"
	"example.com/policy-portal/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PolicyHandler struct {
	Service *lifecycle.Service
}

func pathID(r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	return id, err == nil
}

func parseQuery(r *http.Request) (lifecycle.Filters, lifecycle.Page, error) {
	var (
		f    lifecycle.Filters
		page lifecycle.Page
	)
	q := r.URL.Query()
	if v := q.Get("category"); v != "" {
		c := model.Category(v)
		f.Category = &c
	}
	if v := q.Get("type"); v != "" {
		t := model.PolicyType(v)
		f.Type = &t
	}
	if v := q.Get("status"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, page, err
		}
		f.Status = &b
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, page, err
		}
		page.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, page, err
		}
		page.Limit = n
	}
	return f, page, nil
}

func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	f, page, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}
	ps, err := h.Service.List(r.Context(), f, page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total, err := h.Service.Count(r.Context(), f)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	respondJSON(w, http.StatusOK, ps)
}

func (h *PolicyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.PolicyCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad request", err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	p, err := h.Service.Create(r.Context(), in, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	var in lifecycle.PolicyUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad request", err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	p, err := h.Service.Update(r.Context(), id, in, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PolicyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	actor, _ := ActorFrom(r.Context())
	p, err := h.Service.Delete(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PolicyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	actor, _ := ActorFrom(r.Context())
	p, err := h.Service.ToggleStatus(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PolicyHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	logs, err := h.Service.ListAudit(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (h *PolicyHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	rs, err := h.Service.ListRules(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rs)
}

func (h *PolicyHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	var in lifecycle.RuleCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "bad request", err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	rule, err := h.Service.CreateRule(r.Context(), id, in, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *PolicyHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	actor, _ := ActorFrom(r.Context())
	rule, err := h.Service.DeleteRule(r.Context(), id, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}
