package incident

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

// ExportFormats lists the registered exporter formats in sorted order.
func (s *Service) ExportFormats() []string {
	out := make([]string, 0, len(s.exporters))
	for format := range s.exporters {
		out = append(out, format)
	}
	sort.Strings(out)
	return out
}

// ExportContentType reports the MIME type the exporter for format writes.
func (s *Service) ExportContentType(format string) (string, error) {
	exporter, err := s.exporterFor(format)
	if err != nil {
		return "", err
	}
	return exporter.ContentType(), nil
}

// ExportIncidents writes every incident matching filter, ignoring its paging.
func (s *Service) ExportIncidents(ctx context.Context, filter ListFilter, format string, w io.Writer) (int, error) {
	exporter, err := s.exporterFor(format)
	if err != nil {
		return 0, err
	}

	filter.Page = 1
	filter.PageSize = -1
	result, err := s.ListIncidents(ctx, filter)
	if err != nil {
		return 0, err
	}

	rows := make([]ports.ExportRow, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, toExportRow(item))
	}
	if err := exporter.Write(w, rows); err != nil {
		return 0, errs.Wrapf(err, "write %s export", exporter.Format())
	}

	logging.Info(
		s.logCtx(ctx, slog.String("format", exporter.Format())),
		"incidents exported",
		slog.Int("rows", len(rows)),
	)
	return len(rows), nil
}

func (s *Service) exporterFor(format string) (ports.IncidentExporter, error) {
	exporter, ok := s.exporters[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, errs.WithCode(
			fmt.Errorf("unsupported export format %q (supported: %s)", format, strings.Join(s.ExportFormats(), ", ")),
			errs.CodeInvalidInput,
		)
	}
	return exporter, nil
}

func toExportRow(item ListItem) ports.ExportRow {
	inc := item.Incident
	return ports.ExportRow{
		ID:                           inc.ID,
		Status:                       item.Status.String(),
		NextDeadline:                 item.NextDeadline,
		CreationDate:                 inc.CreationDate,
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
		SecondInputDate:              inc.SecondInputDate,
		ProcessDescription:           inc.ProcessDescription,
		Cause:                        inc.Cause,
		ThirdInputDate:               inc.ThirdInputDate,
		RecurrencePreventionMeasures: inc.RecurrencePreventionMeasures,
		UpdatedAt:                    inc.UpdatedAt,
	}
}
