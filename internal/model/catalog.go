package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultCatalog returns the built-in loan-origination field catalog.
// Labels double as text anchors during extraction, so they must match the
// wording lenders actually print on these documents.
func DefaultCatalog() []FieldDefinition {
	return []FieldDefinition{
		{Key: "business_name", Label: "Business Name", DocumentTypes: []string{DocTypeAll}, Type: ValueString},
		{Key: "bank_balance", Label: "Bank Balance", DocumentTypes: []string{"Bank Statement"}, Type: ValueNumeric, Tolerance: 100},
		{Key: "statement_date", Label: "Statement Date", DocumentTypes: []string{"Bank Statement"}, Type: ValueDate},
		{Key: "loan_amount", Label: "Loan Amount", DocumentTypes: []string{"Application"}, Type: ValueNumeric, Tolerance: 0.01},
		{Key: "annual_revenue", Label: "Annual Revenue", DocumentTypes: []string{"Application", "Tax Return"}, Type: ValueNumeric, Tolerance: 1000},
		{Key: "net_income", Label: "Net Income", DocumentTypes: []string{"Tax Return"}, Type: ValueNumeric, Tolerance: 500},
		{Key: "ein", Label: "EIN", DocumentTypes: []string{"Application", "Tax Return"}, Type: ValueString},
		{Key: "business_address", Label: "Business Address", DocumentTypes: []string{DocTypeAll}, Type: ValueString},
		{Key: "signing_date", Label: "Date Signed", DocumentTypes: []string{"Application"}, Type: ValueDate},
	}
}

// LoadCatalog reads a hand-authored field catalog from a YAML file and
// validates it. The file replaces the built-in catalog wholesale.
func LoadCatalog(path string) ([]FieldDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var doc struct {
		Fields []FieldDefinition `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}
	if err := ValidateCatalog(doc.Fields); err != nil {
		return nil, eris.Wrapf(err, "catalog: validate %s", path)
	}
	return doc.Fields, nil
}

// ValidateCatalog checks catalog invariants: non-empty keys and labels,
// unique keys, known value types, at least one document type per field.
func ValidateCatalog(fields []FieldDefinition) error {
	if len(fields) == 0 {
		return eris.New("catalog is empty")
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return eris.New("field with empty key")
		}
		if _, dup := seen[f.Key]; dup {
			return eris.Errorf("duplicate field key %q", f.Key)
		}
		seen[f.Key] = struct{}{}
		if f.Label == "" {
			return eris.Errorf("field %q has no label", f.Key)
		}
		if !f.Type.Valid() {
			return eris.Errorf("field %q has unknown value type %q", f.Key, f.Type)
		}
		if len(f.DocumentTypes) == 0 {
			return eris.Errorf("field %q applies to no document types", f.Key)
		}
	}
	return nil
}
