package httpapi

import (
	"fmt"
	"strings"
	"time"

	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/ports"
	"troubledesk/internal/usecase/incident"
)

const dateLayout = "2006-01-02"

// phase1Request carries dates as "2006-01-02" and timestamps as RFC 3339.
type phase1Request struct {
	CreationDate            string `json:"creation_date"`
	OrganizationID          int64  `json:"organization_id"`
	CreatorID               int64  `json:"creator_id"`
	OccurrenceAt            string `json:"occurrence_at"`
	OccurrenceLocation      string `json:"occurrence_location"`
	ShippingWarehouseID     int64  `json:"shipping_warehouse_id"`
	ShippingCompanyID       int64  `json:"shipping_company_id"`
	TroubleCategoryID       int64  `json:"trouble_category_id"`
	TroubleDetailCategoryID int64  `json:"trouble_detail_category_id"`
	Details                 string `json:"details"`
	VoucherNumber           string `json:"voucher_number"`
	CustomerCode            string `json:"customer_code"`
	ProductCode             string `json:"product_code"`
	Quantity                *int   `json:"quantity"`
	Unit                    string `json:"unit"`
}

func (req phase1Request) toInput(loc *time.Location) (incident.Phase1Input, error) {
	creationDate, err := parseDate(req.CreationDate, loc)
	if err != nil {
		return incident.Phase1Input{}, fmt.Errorf("creation_date: %w", err)
	}
	occurrenceAt, err := parseTimestamp(req.OccurrenceAt, loc)
	if err != nil {
		return incident.Phase1Input{}, fmt.Errorf("occurrence_at: %w", err)
	}
	input := incident.Phase1Input{
		OrganizationID:          req.OrganizationID,
		CreatorID:               req.CreatorID,
		OccurrenceLocation:      req.OccurrenceLocation,
		ShippingWarehouseID:     req.ShippingWarehouseID,
		ShippingCompanyID:       req.ShippingCompanyID,
		TroubleCategoryID:       req.TroubleCategoryID,
		TroubleDetailCategoryID: req.TroubleDetailCategoryID,
		Details:                 req.Details,
		VoucherNumber:           req.VoucherNumber,
		CustomerCode:            req.CustomerCode,
		ProductCode:             req.ProductCode,
		Quantity:                req.Quantity,
		Unit:                    req.Unit,
	}
	if creationDate != nil {
		input.CreationDate = *creationDate
	}
	if occurrenceAt != nil {
		input.OccurrenceAt = *occurrenceAt
	}
	return input, nil
}

type phase2Request struct {
	InputDate          string `json:"input_date"`
	ProcessDescription string `json:"process_description"`
	Cause              string `json:"cause"`
	PhotoRef           string `json:"photo_ref"`
}

func (req phase2Request) toInput(loc *time.Location) (incident.Phase2Input, error) {
	inputDate, err := parseDate(req.InputDate, loc)
	if err != nil {
		return incident.Phase2Input{}, fmt.Errorf("input_date: %w", err)
	}
	return incident.Phase2Input{
		InputDate:          inputDate,
		ProcessDescription: req.ProcessDescription,
		Cause:              req.Cause,
		PhotoRef:           req.PhotoRef,
	}, nil
}

type phase3Request struct {
	InputDate                    string `json:"input_date"`
	RecurrencePreventionMeasures string `json:"recurrence_prevention_measures"`
}

func (req phase3Request) toInput(loc *time.Location) (incident.Phase3Input, error) {
	inputDate, err := parseDate(req.InputDate, loc)
	if err != nil {
		return incident.Phase3Input{}, fmt.Errorf("input_date: %w", err)
	}
	return incident.Phase3Input{
		InputDate:                    inputDate,
		RecurrencePreventionMeasures: req.RecurrencePreventionMeasures,
	}, nil
}

// patchRequest leaves absent members nil.
type patchRequest struct {
	CreationDate            *string `json:"creation_date"`
	OrganizationID          *int64  `json:"organization_id"`
	OccurrenceAt            *string `json:"occurrence_at"`
	OccurrenceLocation      *string `json:"occurrence_location"`
	ShippingWarehouseID     *int64  `json:"shipping_warehouse_id"`
	ShippingCompanyID       *int64  `json:"shipping_company_id"`
	TroubleCategoryID       *int64  `json:"trouble_category_id"`
	TroubleDetailCategoryID *int64  `json:"trouble_detail_category_id"`
	Details                 *string `json:"details"`
	VoucherNumber           *string `json:"voucher_number"`
	CustomerCode            *string `json:"customer_code"`
	ProductCode             *string `json:"product_code"`
	Quantity                *int    `json:"quantity"`
	Unit                    *string `json:"unit"`

	SecondInputDate    *string `json:"second_input_date"`
	ProcessDescription *string `json:"process_description"`
	Cause              *string `json:"cause"`
	PhotoRef           *string `json:"photo_ref"`

	ThirdInputDate               *string `json:"third_input_date"`
	RecurrencePreventionMeasures *string `json:"recurrence_prevention_measures"`
}

func (req patchRequest) toPatch(loc *time.Location) (domain.Patch, error) {
	patch := domain.Patch{
		OrganizationID:               req.OrganizationID,
		OccurrenceLocation:           req.OccurrenceLocation,
		ShippingWarehouseID:          req.ShippingWarehouseID,
		ShippingCompanyID:            req.ShippingCompanyID,
		TroubleCategoryID:            req.TroubleCategoryID,
		TroubleDetailCategoryID:      req.TroubleDetailCategoryID,
		Details:                      req.Details,
		VoucherNumber:                req.VoucherNumber,
		CustomerCode:                 req.CustomerCode,
		ProductCode:                  req.ProductCode,
		Quantity:                     req.Quantity,
		Unit:                         req.Unit,
		ProcessDescription:           req.ProcessDescription,
		Cause:                        req.Cause,
		PhotoRef:                     req.PhotoRef,
		RecurrencePreventionMeasures: req.RecurrencePreventionMeasures,
	}

	dates := []struct {
		name  string
		raw   *string
		dst   **time.Time
		parse func(string, *time.Location) (*time.Time, error)
	}{
		{"creation_date", req.CreationDate, &patch.CreationDate, parseDate},
		{"occurrence_at", req.OccurrenceAt, &patch.OccurrenceAt, parseTimestamp},
		{"second_input_date", req.SecondInputDate, &patch.SecondInputDate, parseDate},
		{"third_input_date", req.ThirdInputDate, &patch.ThirdInputDate, parseDate},
	}
	for _, field := range dates {
		if field.raw == nil {
			continue
		}
		value, err := field.parse(*field.raw, loc)
		if err != nil {
			return domain.Patch{}, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = value
	}
	return patch, nil
}

type incidentResponse struct {
	ID                           int64      `json:"id"`
	Status                       string     `json:"status"`
	NextDeadline                 *time.Time `json:"next_deadline,omitempty"`
	CreationDate                 string     `json:"creation_date"`
	OrganizationID               int64      `json:"organization_id"`
	CreatorID                    int64      `json:"creator_id"`
	OccurrenceAt                 time.Time  `json:"occurrence_at"`
	OccurrenceLocation           string     `json:"occurrence_location"`
	ShippingWarehouseID          int64      `json:"shipping_warehouse_id"`
	ShippingCompanyID            int64      `json:"shipping_company_id"`
	TroubleCategoryID            int64      `json:"trouble_category_id"`
	TroubleDetailCategoryID      int64      `json:"trouble_detail_category_id"`
	Details                      string     `json:"details"`
	VoucherNumber                string     `json:"voucher_number,omitempty"`
	CustomerCode                 string     `json:"customer_code,omitempty"`
	ProductCode                  string     `json:"product_code,omitempty"`
	Quantity                     *int       `json:"quantity,omitempty"`
	Unit                         string     `json:"unit,omitempty"`
	SecondInputDate              string     `json:"second_input_date,omitempty"`
	ProcessDescription           string     `json:"process_description,omitempty"`
	Cause                        string     `json:"cause,omitempty"`
	PhotoRef                     string     `json:"photo_ref,omitempty"`
	ThirdInputDate               string     `json:"third_input_date,omitempty"`
	RecurrencePreventionMeasures string     `json:"recurrence_prevention_measures,omitempty"`
	CreatedAt                    time.Time  `json:"created_at"`
	UpdatedAt                    time.Time  `json:"updated_at"`
	CreatedBy                    int64      `json:"created_by"`
	UpdatedBy                    int64      `json:"updated_by"`
}

type detailResponse struct {
	incidentResponse
	Permissions map[string]bool `json:"permissions"`
	Files       []fileResponse  `json:"files"`
	Events      []eventResponse `json:"events"`
}

type fileResponse struct {
	ID          int64     `json:"id"`
	IncidentID  int64     `json:"incident_id"`
	InfoLevel   int       `json:"info_level"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   int64     `json:"created_by"`
}

type eventResponse struct {
	ID        int64          `json:"id"`
	ActorID   int64          `json:"actor_id"`
	ActorRole string         `json:"actor_role"`
	Action    string         `json:"action"`
	Phase     int            `json:"phase"`
	Changes   map[string]any `json:"changes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type listResponse struct {
	Items    []incidentResponse `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

type groupResponse struct {
	Key   int64 `json:"key"`
	Count int64 `json:"count"`
}

type monthResponse struct {
	Month     string `json:"month"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
	Delayed   int    `json:"delayed"`
}

type dashboardResponse struct {
	Total       int             `json:"total"`
	ByStatus    map[string]int  `json:"by_status"`
	Delayed     int             `json:"delayed"`
	ByCategory  []groupResponse `json:"by_category"`
	ByWarehouse []groupResponse `json:"by_warehouse"`
	Monthly     []monthResponse `json:"monthly"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type parameterRequest struct {
	Value       string  `json:"value"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type parameterResponse struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
	UpdatedBy   int64     `json:"updated_by"`
}

func toIncidentResponse(inc domain.Incident, status domain.Status, deadline *time.Time, loc *time.Location) incidentResponse {
	return incidentResponse{
		ID:                           inc.ID,
		Status:                       status.String(),
		NextDeadline:                 deadline,
		CreationDate:                 inc.CreationDate.In(loc).Format(dateLayout),
		OrganizationID:               inc.OrganizationID,
		CreatorID:                    inc.CreatorID,
		OccurrenceAt:                 inc.OccurrenceAt,
		OccurrenceLocation:           inc.OccurrenceLocation,
		ShippingWarehouseID:          inc.ShippingWarehouseID,
		ShippingCompanyID:            inc.ShippingCompanyID,
		TroubleCategoryID:            inc.TroubleCategoryID,
		TroubleDetailCategoryID:      inc.TroubleDetailCategoryID,
		Details:                      inc.Details,
		VoucherNumber:                inc.VoucherNumber,
		CustomerCode:                 inc.CustomerCode,
		ProductCode:                  inc.ProductCode,
		Quantity:                     inc.Quantity,
		Unit:                         inc.Unit,
		SecondInputDate:              formatDate(inc.SecondInputDate, loc),
		ProcessDescription:           inc.ProcessDescription,
		Cause:                        inc.Cause,
		PhotoRef:                     inc.PhotoRef,
		ThirdInputDate:               formatDate(inc.ThirdInputDate, loc),
		RecurrencePreventionMeasures: inc.RecurrencePreventionMeasures,
		CreatedAt:                    inc.CreatedAt,
		UpdatedAt:                    inc.UpdatedAt,
		CreatedBy:                    inc.CreatedBy,
		UpdatedBy:                    inc.UpdatedBy,
	}
}

func toDetailResponse(detail incident.Detail, loc *time.Location) detailResponse {
	out := detailResponse{
		incidentResponse: toIncidentResponse(detail.Incident, detail.Status, detail.NextDeadline, loc),
		Permissions:      make(map[string]bool, len(detail.Permissions)),
		Files:            make([]fileResponse, 0, len(detail.Files)),
		Events:           make([]eventResponse, 0, len(detail.Events)),
	}
	for action, allowed := range detail.Permissions {
		out.Permissions[string(action)] = allowed
	}
	for _, file := range detail.Files {
		out.Files = append(out.Files, toFileResponse(file))
	}
	for _, event := range detail.Events {
		out.Events = append(out.Events, eventResponse{
			ID:        event.ID,
			ActorID:   event.ActorID,
			ActorRole: event.ActorRole.String(),
			Action:    event.Action,
			Phase:     event.Phase,
			Changes:   event.Changes,
			CreatedAt: event.CreatedAt,
		})
	}
	return out
}

func toFileResponse(file ports.IncidentFile) fileResponse {
	return fileResponse{
		ID:          file.ID,
		IncidentID:  file.IncidentID,
		InfoLevel:   file.InfoLevel,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		FileSize:    file.FileSize,
		CreatedAt:   file.CreatedAt,
		CreatedBy:   file.CreatedBy,
	}
}

func toDashboardResponse(summary incident.DashboardSummary) dashboardResponse {
	out := dashboardResponse{
		Total:       summary.Total,
		ByStatus:    make(map[string]int, len(summary.ByStatus)),
		Delayed:     summary.Delayed,
		ByCategory:  toGroupResponses(summary.ByCategory),
		ByWarehouse: toGroupResponses(summary.ByWarehouse),
		Monthly:     make([]monthResponse, 0, len(summary.Monthly)),
		GeneratedAt: summary.GeneratedAt,
	}
	for status, count := range summary.ByStatus {
		out.ByStatus[status.String()] = count
	}
	for _, month := range summary.Monthly {
		out.Monthly = append(out.Monthly, monthResponse(month))
	}
	return out
}

func toGroupResponses(groups []ports.GroupCount) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		out = append(out, groupResponse(group))
	}
	return out
}

func toParameterResponse(param ports.SystemParameter) parameterResponse {
	return parameterResponse{
		Key:         param.Key,
		Value:       param.Value,
		Type:        string(param.ValueType),
		Description: param.Description,
		Active:      param.IsActive,
		UpdatedAt:   param.UpdatedAt,
		UpdatedBy:   param.UpdatedBy,
	}
}

// parseDate accepts "2006-01-02" or RFC 3339; blank yields nil.
func parseDate(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if value, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return &value, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM-DD or RFC 3339, got %q", raw)
	}
	return &value, nil
}

// parseTimestamp accepts RFC 3339 or "2006-01-02 15:04" in loc; blank yields nil.
func parseTimestamp(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if value, err := time.Parse(time.RFC3339, raw); err == nil {
		return &value, nil
	}
	value, err := time.ParseInLocation("2006-01-02 15:04", raw, loc)
	if err != nil {
		return nil, fmt.Errorf("want RFC 3339 or YYYY-MM-DD HH:MM, got %q", raw)
	}
	return &value, nil
}

func formatDate(value *time.Time, loc *time.Location) string {
	if value == nil {
		return ""
	}
	return value.In(loc).Format(dateLayout)
}
