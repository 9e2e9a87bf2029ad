package export

import (
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"troubledesk/internal/errs"
	"troubledesk/internal/ports"
)

const sheetName = "Incidents"

type XLSXExporter struct {
	loc *time.Location
}

var _ ports.IncidentExporter = (*XLSXExporter)(nil)

func NewXLSXExporter(loc *time.Location) *XLSXExporter {
	return &XLSXExporter{loc: locationOrUTC(loc)}
}

func (e *XLSXExporter) Format() string { return "xlsx" }

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Write(w io.Writer, rows []ports.ExportRow) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return errs.Wrap(err, "rename sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return errs.Wrap(err, "create header style")
	}

	header := make([]any, 0, len(columns))
	for i, col := range columns {
		header = append(header, col.header)
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return errs.Wrap(err, "convert column number")
		}
		if err := f.SetColWidth(sheetName, name, name, col.width); err != nil {
			return errs.Wrap(err, "set column width")
		}
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return errs.Wrap(err, "write header row")
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return errs.Wrap(err, "convert header coordinates")
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return errs.Wrap(err, "set header style")
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errs.Wrap(err, "convert row coordinates")
		}
		values := make([]any, 0, len(columns))
		for _, col := range columns {
			values = append(values, col.value(row, e.loc))
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return errs.Wrapf(err, "write row %d", row.ID)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errs.Wrap(err, "freeze header row")
	}

	if _, err := f.WriteTo(w); err != nil {
		return errs.Wrap(err, "write xlsx")
	}
	return nil
}
