package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/loanocr/internal/model"
)

func exportRegistry() *model.FieldRegistry {
	return model.NewFieldRegistry([]model.FieldDefinition{
		{Key: "bank_balance", Label: "Bank Balance", DocumentTypes: []string{"Bank Statement"}, Type: model.ValueNumeric, Tolerance: 100},
		{Key: "business_name", Label: "Business Name", DocumentTypes: []string{model.DocTypeAll}, Type: model.ValueString},
	})
}

func TestWriteComparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	cmp := model.Comparison{
		MismatchFlags: []model.MismatchFlag{
			{FieldKey: "bank_balance", DocumentID: "D1", Value: "$12,345.67", ComparisonValues: []string{"$12,000"}},
			{FieldKey: "bank_balance", DocumentID: "D2", Value: "$12,000", ComparisonValues: []string{"$12,345.67"}},
		},
		MissingRequiredFields: []string{"business_name"},
	}

	require.NoError(t, WriteComparison(path, exportRegistry(), cmp))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	mismatches := f.Sheets[0]
	assert.Equal(t, "Mismatches", mismatches.Name)
	require.Len(t, mismatches.Rows, 3)
	assert.Equal(t, "Bank Balance", mismatches.Rows[1].Cells[0].String())
	assert.Equal(t, "D1", mismatches.Rows[1].Cells[1].String())
	assert.Equal(t, "$12,345.67", mismatches.Rows[1].Cells[2].String())
	assert.Equal(t, "$12,000", mismatches.Rows[1].Cells[3].String())

	missing := f.Sheets[1]
	assert.Equal(t, "Missing Fields", missing.Name)
	require.Len(t, missing.Rows, 2)
	assert.Equal(t, "Business Name", missing.Rows[1].Cells[0].String())
	assert.Equal(t, "business_name", missing.Rows[1].Cells[1].String())
}

func TestWriteComparison_EmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, WriteComparison(path, exportRegistry(), model.Comparison{}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Len(t, f.Sheets[0].Rows, 1) // header only
	assert.Len(t, f.Sheets[1].Rows, 1)
}

func TestWriteComparison_MultipleComparisonValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.xlsx")

	cmp := model.Comparison{
		MismatchFlags: []model.MismatchFlag{
			{FieldKey: "bank_balance", DocumentID: "D1", Value: "100", ComparisonValues: []string{"200", "300"}},
		},
	}
	require.NoError(t, WriteComparison(path, exportRegistry(), cmp))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "200; 300", f.Sheets[0].Rows[1].Cells[3].String())
}
