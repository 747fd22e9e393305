// Package export writes reconciliation reports as xlsx workbooks for
// underwriters who review applications outside the portal.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/loanocr/internal/model"
)

// WriteComparison writes a two-sheet workbook: flagged mismatches and
// missing required fields. Field keys are rendered with their registry
// display labels.
func WriteComparison(path string, registry *model.FieldRegistry, cmp model.Comparison) error {
	f := xlsx.NewFile()

	mismatches, err := f.AddSheet("Mismatches")
	if err != nil {
		return eris.Wrap(err, "export: add mismatches sheet")
	}
	header := mismatches.AddRow()
	for _, h := range []string{"Field", "Document", "Value", "Competing Values"} {
		header.AddCell().SetString(h)
	}
	for _, flag := range cmp.MismatchFlags {
		row := mismatches.AddRow()
		row.AddCell().SetString(registry.Label(flag.FieldKey))
		row.AddCell().SetString(flag.DocumentID)
		row.AddCell().SetString(flag.Value)
		row.AddCell().SetString(strings.Join(flag.ComparisonValues, "; "))
	}

	missing, err := f.AddSheet("Missing Fields")
	if err != nil {
		return eris.Wrap(err, "export: add missing sheet")
	}
	missingHeader := missing.AddRow()
	missingHeader.AddCell().SetString("Field")
	missingHeader.AddCell().SetString("Key")
	for _, key := range cmp.MissingRequiredFields {
		row := missing.AddRow()
		row.AddCell().SetString(registry.Label(key))
		row.AddCell().SetString(key)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
