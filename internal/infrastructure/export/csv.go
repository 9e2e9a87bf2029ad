package export

import (
	"encoding/csv"
	"io"
	"time"

	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

type CSVExporter struct {
	loc *time.Location
}

var _ ports.IncidentExporter = (*CSVExporter)(nil)

func NewCSVExporter(loc *time.Location) *CSVExporter {
	return &CSVExporter{loc: locationOrUTC(loc)}
}

func (e *CSVExporter) Format() string      { return "csv" }
func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// Write emits a UTF-8 BOM first so spreadsheet tools detect the encoding.
func (e *CSVExporter) Write(w io.Writer, rows []ports.ExportRow) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return errs.Wrap(err, "write csv bom")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Header()); err != nil {
		return errs.Wrap(err, "write csv header")
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = textCell(col.value(row, e.loc))
		}
		if err := writer.Write(record); err != nil {
			return errs.Wrapf(err, "write csv row %d", row.ID)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errs.Wrap(err, "flush csv")
	}
	return nil
}
