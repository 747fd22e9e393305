package extract

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/loanocr/internal/model"
	"github.com/sells-group/loanocr/internal/store"
)

func newTestExtractor(t *testing.T) (*Extractor, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	registry := model.NewFieldRegistry([]model.FieldDefinition{
		{Key: "bank_balance", Label: "Bank Balance", DocumentTypes: []string{"Bank Statement"}, Type: model.ValueNumeric, Tolerance: 100},
		{Key: "business_name", Label: "Business Name", DocumentTypes: []string{model.DocTypeAll}, Type: model.ValueString},
		{Key: "loan_amount", Label: "Loan Amount", DocumentTypes: []string{"Application"}, Type: model.ValueNumeric},
	})
	return New(registry, st), st
}

func bankStatementInput(doc string, pages ...string) Input {
	return Input{
		ApplicationID: "APP-1",
		DocumentID:    doc,
		DocumentType:  "Bank Statement",
		Pages:         pages,
		Trigger:       model.TriggerUpload,
	}
}

func TestExtractor_BasicExtraction(t *testing.T) {
	ex, _ := newTestExtractor(t)

	run, results, err := ex.Run(context.Background(),
		bankStatementInput("D1", "Business Name: Acme Holdings\nBank Balance: $12,345.67"))
	require.NoError(t, err)

	assert.Equal(t, 1, run.Version)
	assert.Equal(t, model.TriggerUpload, run.Trigger)

	require.Len(t, results, 2)
	assert.Equal(t, "bank_balance", results[0].FieldKey)
	assert.Equal(t, "$12,345.67", results[0].Value)
	assert.Equal(t, 1, results[0].SourcePage)
	assert.Equal(t, run.ID, results[0].RunID)
	assert.Equal(t, "business_name", results[1].FieldKey)
	assert.Equal(t, "Acme Holdings", results[1].Value)
}

func TestExtractor_VersionMonotonicity(t *testing.T) {
	ex, _ := newTestExtractor(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		// Alternate between matching and empty pages: empty runs still
		// consume a version.
		pages := []string{}
		if i%2 == 0 {
			pages = []string{"Bank Balance: 100"}
		}
		run, _, err := ex.Run(ctx, bankStatementInput("D1", pages...))
		require.NoError(t, err)
		assert.Equal(t, i, run.Version)
	}
}

func TestExtractor_VersionsIndependentPerDocument(t *testing.T) {
	ex, _ := newTestExtractor(t)
	ctx := context.Background()

	run1, _, err := ex.Run(ctx, bankStatementInput("D1", "Bank Balance: 100"))
	require.NoError(t, err)
	run2, _, err := ex.Run(ctx, bankStatementInput("D2", "Bank Balance: 200"))
	require.NoError(t, err)

	assert.Equal(t, 1, run1.Version)
	assert.Equal(t, 1, run2.Version)
}

func TestExtractor_FirstPageWins(t *testing.T) {
	ex, _ := newTestExtractor(t)

	_, results, err := ex.Run(context.Background(),
		bankStatementInput("D1", "Bank Balance: 111", "Bank Balance: 999"))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "111", results[0].Value)
	assert.Equal(t, 1, results[0].SourcePage)
}

func TestExtractor_SourcePageIsOneIndexed(t *testing.T) {
	ex, _ := newTestExtractor(t)

	_, results, err := ex.Run(context.Background(),
		bankStatementInput("D1", "cover page", "Bank Balance: 42"))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].SourcePage)
}

func TestExtractor_EmptyPagesYieldsEmptyRun(t *testing.T) {
	ex, st := newTestExtractor(t)
	ctx := context.Background()

	run, results, err := ex.Run(ctx, bankStatementInput("D1"))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, run.Version)

	runs, err := st.RunsForDocument(ctx, "D1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestExtractor_InapplicableFieldsSkipped(t *testing.T) {
	ex, _ := newTestExtractor(t)

	// loan_amount applies to Application documents only.
	_, results, err := ex.Run(context.Background(),
		bankStatementInput("D1", "Loan Amount: 50000"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExtractor_CallerSuppliedTimestamp(t *testing.T) {
	ex, _ := newTestExtractor(t)

	at := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	in := bankStatementInput("D1", "Bank Balance: 100")
	in.ExtractedAt = at

	run, results, err := ex.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, at, run.ExtractedAt)
	assert.Equal(t, at, results[0].ExtractedAt)
	assert.Equal(t, "APP-1-D1-v1-20240304T120000", run.ID)
}

func TestExtractor_RunsPersisted(t *testing.T) {
	ex, st := newTestExtractor(t)
	ctx := context.Background()

	_, _, err := ex.Run(ctx, bankStatementInput("D1", "Bank Balance: 100"))
	require.NoError(t, err)
	in := bankStatementInput("D1", "Bank Balance: 120")
	in.Trigger = model.TriggerReprocess
	_, _, err = ex.Run(ctx, in)
	require.NoError(t, err)

	runs, err := st.RunsForDocument(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.TriggerUpload, runs[0].Trigger)
	assert.Equal(t, model.TriggerReprocess, runs[1].Trigger)

	results, err := st.ResultsForDocument(ctx, "D1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestExtractor_RejectsMissingApplicationID(t *testing.T) {
	ex, _ := newTestExtractor(t)

	in := bankStatementInput("D1", "x")
	in.ApplicationID = ""
	_, _, err := ex.Run(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExtractor_RejectsUnknownTrigger(t *testing.T) {
	ex, _ := newTestExtractor(t)

	in := bankStatementInput("D1", "x")
	in.Trigger = "cron"
	_, _, err := ex.Run(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfidence_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(""))
}

func TestConfidence_ShortValue(t *testing.T) {
	// 3 chars: 0.6 + 0.4*(3/30) = 0.64
	assert.Equal(t, 0.64, Confidence("123"))
}

func TestConfidence_SaturatesAtOne(t *testing.T) {
	long := "a very long extracted value exceeding thirty characters"
	assert.Equal(t, 1.0, Confidence(long))
}

func TestConfidence_Bounds(t *testing.T) {
	assert.Equal(t, 0.61, Confidence("x"))
}
