package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

func TestRecordXLSX(t *testing.T) {
	rec := entity.NewExtractionRecord("doc-1", "acme", "plan.pdf", "abc", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	rec.Status = constants.RunStatusCompleted
	rec.Result = &entity.Result{
		ProfileID:  "acme",
		DocumentID: "doc-1",
		Region:     entity.Region{Start: 10, End: 500},
		Categories: []entity.CategoryResult{
			{
				ID:          "dental_care",
				HeaderFound: true,
				Fields: []entity.FieldValue{
					entity.Present("basic", constants.FormatScalarString, "80% up to $1,000", nil),
					entity.Present("services", constants.FormatListOfString, []string{"Cleanings", "X-rays"}, nil),
					entity.Present("deductible", constants.FormatStructuredObject, map[string]any{"single": "$25"}, nil),
				},
			},
			{
				ID: "vision_care",
				Fields: []entity.FieldValue{
					entity.Absent("frames", constants.FormatScalarString, constants.ReasonHeaderNotFound, ""),
				},
			},
		},
		MissingHeaders: []string{"vision_care"},
	}

	b, err := NewExporter(nil).RecordXLSX(rec)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(fieldsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, fieldHeaders, rows[0])
	assert.Equal(t, []string{"dental_care", "TRUE", "basic", "scalar-string", "present", "80% up to $1,000"}, rows[1])
	assert.Equal(t, "Cleanings; X-rays", rows[2][5])
	assert.Equal(t, `{"single":"$25"}`, rows[3][5])
	assert.Equal(t, []string{"vision_care", "FALSE", "frames", "scalar-string", "absent", "", "header-not-found"}, rows[4])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Document", "doc-1"}, summary[0])
	assert.Equal(t, []string{"Fields Present", "3"}, summary[6])
	assert.Equal(t, []string{"Missing Headers", "vision_care"}, summary[8])
}

func TestRecordXLSXWithoutResult(t *testing.T) {
	_, err := NewExporter(nil).RecordXLSX(entity.NewExtractionRecord("doc-1", "acme", "", "", time.Now()))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "", CellValue(nil))
	assert.Equal(t, "a; b", CellValue([]any{"a", "b"}))
	assert.Equal(t, "x", CellValue("x"))
}
