package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"troubledesk/internal/usecase/parameter"
)

func (h *Handler) handleListParameters(w http.ResponseWriter, r *http.Request) {
	params, err := h.params.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]parameterResponse, 0, len(params))
	for _, param := range params {
		out = append(out, toParameterResponse(param))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) handleSetParameter(w http.ResponseWriter, r *http.Request) {
	var req parameterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid payload: "+err.Error())
		return
	}

	saved, err := h.params.Set(r.Context(), actorFrom(r.Context()), parameter.SetInput{
		Key:         chi.URLParam(r, "key"),
		Value:       req.Value,
		Type:        req.Type,
		Description: req.Description,
		IsActive:    req.Active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toParameterResponse(saved))
}
