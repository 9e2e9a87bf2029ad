package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/usecase/incident"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	filter, err := h.listFilter(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	result, err := h.incidents.ListIncidents(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := listResponse{
		Items:    make([]incidentResponse, 0, len(result.Items)),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}
	for _, item := range result.Items {
		out.Items = append(out.Items, toIncidentResponse(item.Incident, item.Status, item.NextDeadline, h.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req phase1Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid payload: "+err.Error())
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	detail, err := h.incidents.CreateIncident(r.Context(), actorFrom(r.Context()), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/incidents/"+strconv.FormatInt(detail.Incident.ID, 10))
	writeJSON(w, http.StatusCreated, toDetailResponse(detail, h.loc))
}

func (h *Handler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}

	detail, err := h.incidents.GetIncident(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail, h.loc))
}

func (h *Handler) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}

	if err := h.incidents.DeleteIncident(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePatchIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid payload: "+err.Error())
		return
	}
	patch, err := req.toPatch(h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	detail, err := h.incidents.ApplyPatch(r.Context(), actorFrom(r.Context()), id, patch)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) handleUpdateFirst(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}
	var req phase1Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid payload: "+err.Error())
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	detail, err := h.incidents.UpdatePhase1(r.Context(), actorFrom(r.Context()), id, input)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) handleCreateSecond(w http.ResponseWriter, r *http.Request) {
	h.handleSecond(w, r, h.incidents.CreatePhase2)
}

func (h *Handler) handleUpdateSecond(w http.ResponseWriter, r *http.Request) {
	h.handleSecond(w, r, h.incidents.UpdatePhase2)
}

func (h *Handler) handleSecond(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor domain.Actor, id int64, input incident.Phase2Input) (incident.Detail, error),
) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}
	var req phase2Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid payload: "+err.Error())
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	detail, err := op(r.Context(), actorFrom(r.Context()), id, input)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) handleCreateThird(w http.ResponseWriter, r *http.Request) {
	h.handleThird(w, r, h.incidents.CreatePhase3)
}

func (h *Handler) handleUpdateThird(w http.ResponseWriter, r *http.Request) {
	h.handleThird(w, r, h.incidents.UpdatePhase3)
}

func (h *Handler) handleThird(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor domain.Actor, id int64, input incident.Phase3Input) (incident.Detail, error),
) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}
	var req phase3Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid payload: "+err.Error())
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	detail, err := op(r.Context(), actorFrom(r.Context()), id, input)
	h.respondDetail(w, r, detail, err)
}

func (h *Handler) respondDetail(w http.ResponseWriter, r *http.Request, detail incident.Detail, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail, h.loc))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := dashboardFilterFromQuery(r.URL.Query(), h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	summary, err := h.incidents.Dashboard(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardResponse(summary))
}

func dashboardFilterFromQuery(query url.Values, loc *time.Location) (incident.DashboardFilter, error) {
	filter := incident.DashboardFilter{}
	var err error
	if filter.OrganizationID, err = queryInt(query.Get("organization_id")); err != nil {
		return filter, fmt.Errorf("organization_id: %w", err)
	}
	if filter.ShippingWarehouseID, err = queryInt(query.Get("warehouse_id")); err != nil {
		return filter, fmt.Errorf("warehouse_id: %w", err)
	}
	if filter.TroubleCategoryID, err = queryInt(query.Get("category_id")); err != nil {
		return filter, fmt.Errorf("category_id: %w", err)
	}
	if filter.CreatedFrom, err = parseDate(query.Get("from"), loc); err != nil {
		return filter, fmt.Errorf("from: %w", err)
	}
	if filter.CreatedTo, err = parseDate(query.Get("to"), loc); err != nil {
		return filter, fmt.Errorf("to: %w", err)
	}
	months, err := queryInt(query.Get("months"))
	if err != nil {
		return filter, fmt.Errorf("months: %w", err)
	}
	filter.Months = int(months)
	return filter, nil
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	contentType, err := h.incidents.ExportContentType(format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := h.listFilter(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	// Buffered so a failed export is still answered as JSON.
	var buf bytes.Buffer
	if _, err := h.incidents.ExportIncidents(r.Context(), filter, format, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	filename := "incidents-" + time.Now().In(h.loc).Format("20060102") + "." + strings.ToLower(format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) listFilter(r *http.Request) (incident.ListFilter, error) {
	query := r.URL.Query()
	var (
		filter incident.ListFilter
		err    error
	)
	ints := []struct {
		name string
		dst  *int64
	}{
		{"organization_id", &filter.OrganizationID},
		{"warehouse_id", &filter.ShippingWarehouseID},
		{"category_id", &filter.TroubleCategoryID},
	}
	for _, field := range ints {
		if *field.dst, err = queryInt(query.Get(field.name)); err != nil {
			return incident.ListFilter{}, fieldError(field.name, err)
		}
	}
	if filter.CreatedFrom, err = parseDate(query.Get("from"), h.loc); err != nil {
		return incident.ListFilter{}, fieldError("from", err)
	}
	if filter.CreatedTo, err = parseDate(query.Get("to"), h.loc); err != nil {
		return incident.ListFilter{}, fieldError("to", err)
	}
	filter.Keyword = query.Get("keyword")

	for _, raw := range query["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := domain.ParseStatus(part)
			if err != nil {
				return incident.ListFilter{}, fieldError("status", err)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := query.Get("delayed"); raw != "" {
		if filter.DelayedOnly, err = strconv.ParseBool(raw); err != nil {
			return incident.ListFilter{}, fieldError("delayed", err)
		}
	}

	page, err := queryInt(query.Get("page"))
	if err != nil {
		return incident.ListFilter{}, fieldError("page", err)
	}
	pageSize, err := queryInt(query.Get("page_size"))
	if err != nil {
		return incident.ListFilter{}, fieldError("page_size", err)
	}
	filter.Page = int(page)
	filter.PageSize = int(pageSize)
	return filter, nil
}

func fieldError(name string, err error) error {
	return fmt.Errorf("%s: %w", name, err)
}

func queryInt(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
