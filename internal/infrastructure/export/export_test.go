package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"troubledesk/internal/ports"
)

func sampleRows() []ports.ExportRow {
	qty := 12
	second := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	return []ports.ExportRow{
		{
			ID:                 1,
			Status:             "ThirdInfoInvestigation",
			CreationDate:       time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC),
			OccurrenceAt:       time.Date(2025, 3, 1, 1, 30, 0, 0, time.UTC),
			OccurrenceLocation: "Kobe DC",
			Details:            "pallet, \"crushed\"",
			Quantity:           &qty,
			SecondInputDate:    &second,
			Cause:              "forklift",
		},
		{ID: 2, Status: "SecondInfoDelayed", Details: "label missing"},
	}
}

func TestCSVExporter(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	var buf bytes.Buffer
	if err := NewCSVExporter(tokyo).Write(&buf, sampleRows()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	body := strings.TrimPrefix(buf.String(), "\ufeff")
	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0][0] != "ID" || records[0][1] != "Status" {
		t.Fatalf("header = %v", records[0])
	}

	first := records[1]
	if first[3] != "2025-03-02" {
		t.Fatalf("creation date in JST = %q", first[3])
	}
	if first[12] != `pallet, "crushed"` || first[16] != "12" || first[18] != "2025-03-05" {
		t.Fatalf("row = %v", first)
	}
	if records[2][16] != "" || records[2][18] != "" {
		t.Fatalf("optional cells should be empty: %v", records[2])
	}
}

func TestXLSXExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewXLSXExporter(nil).Write(&buf, sampleRows()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][1] != "Status" || rows[1][1] != "ThirdInfoInvestigation" || rows[2][0] != "2" {
		t.Fatalf("rows = %v", rows)
	}
}
