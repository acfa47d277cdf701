package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

const (
	fieldsSheet  = "Fields"
	summarySheet = "Summary"
	maxCellChars = 32767
)

var fieldHeaders = []string{
	"Category",
	"Header Found",
	"Field",
	"Format",
	"Status",
	"Value",
	"Reason",
	"Detail",
}

// Exporter renders stored extraction records as XLSX workbooks.
type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// RecordXLSX returns a workbook with one row per category/field of the
// record's result and a summary sheet.
func (e *Exporter) RecordXLSX(rec *entity.ExtractionRecord) ([]byte, error) {
	if rec == nil || rec.Result == nil {
		return nil, common.InvalidArgumentError("record has no result to export")
	}
	start := time.Now()
	res := rec.Result

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", fieldsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	for i, h := range fieldHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(fieldsSheet, cell, h)
	}
	row := 2
	for _, cat := range res.Categories {
		for _, fv := range cat.Fields {
			values := []any{
				cat.ID,
				cat.HeaderFound,
				fv.FieldID,
				string(fv.Format),
				string(fv.Status),
				clip(CellValue(fv.Value)),
				string(fv.Reason),
				clip(fv.Detail),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(fieldsSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}
	_ = f.SetColWidth(fieldsSheet, "A", "A", 24)
	_ = f.SetColWidth(fieldsSheet, "B", "B", 12)
	_ = f.SetColWidth(fieldsSheet, "C", "C", 28)
	_ = f.SetColWidth(fieldsSheet, "D", "E", 16)
	_ = f.SetColWidth(fieldsSheet, "F", "F", 60)
	_ = f.SetColWidth(fieldsSheet, "G", "H", 24)
	_ = f.SetPanes(fieldsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	present, absent := res.Counts()
	summary := [][]any{
		{"Document", rec.DocumentID},
		{"File", rec.FileName},
		{"Profile", res.ProfileID},
		{"Status", string(rec.Status)},
		{"Region Start", res.Region.Start},
		{"Region End", res.Region.End},
		{"Fields Present", present},
		{"Fields Absent", absent},
		{"Missing Headers", strings.Join(res.MissingHeaders, ", ")},
		{"Updated At", rec.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	for i, kv := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &kv); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 48)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	e.logger.Info("export.xlsx.ok",
		"document_id", rec.DocumentID,
		"rows", row-2,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// CellValue flattens a field value into one cell: lists are joined with
// "; ", objects become compact JSON.
func CellValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, "; ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, CellValue(item))
		}
		return strings.Join(parts, "; ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func clip(s string) string {
	if len(s) <= maxCellChars {
		return s
	}
	cut := maxCellChars - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
