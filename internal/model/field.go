package model

// ValueType describes how a field's raw extracted strings are normalized
// and compared across documents.
type ValueType string

const (
	ValueNumeric ValueType = "numeric"
	ValueString  ValueType = "string"
	ValueDate    ValueType = "date"
)

// Valid reports whether vt is one of the known value types.
func (vt ValueType) Valid() bool {
	switch vt {
	case ValueNumeric, ValueString, ValueDate:
		return true
	}
	return false
}

// DocTypeAll is the sentinel document type that makes a field applicable
// to every document.
const DocTypeAll = "ALL"

// FieldDefinition declares one extractable field: its key, the display
// label used both for rendering and as the text anchor during matching,
// the document types it applies to, and how two raw values are compared.
type FieldDefinition struct {
	Key           string    `json:"key" yaml:"key"`
	Label         string    `json:"label" yaml:"label"`
	DocumentTypes []string  `json:"document_types" yaml:"document_types"`
	Type          ValueType `json:"type" yaml:"type"`
	// Tolerance is the maximum numeric difference for two values to be
	// considered equal. Ignored for non-numeric fields.
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// FieldRegistry is an indexed, order-preserving collection of field
// definitions. Content is fixed once built; every registered field is
// treated as required when computing missing fields.
type FieldRegistry struct {
	Fields []FieldDefinition
	byKey  map[string]*FieldDefinition
}

// NewFieldRegistry creates a FieldRegistry with an indexed key lookup.
func NewFieldRegistry(fields []FieldDefinition) *FieldRegistry {
	r := &FieldRegistry{
		Fields: fields,
		byKey:  make(map[string]*FieldDefinition, len(fields)),
	}
	for i := range r.Fields {
		r.byKey[r.Fields[i].Key] = &r.Fields[i]
	}
	return r
}

// ByKey returns the field definition for the given key, or nil if not found.
// An absent key is a normal outcome, never an error.
func (r *FieldRegistry) ByKey(key string) *FieldDefinition {
	return r.byKey[key]
}

// Applicable reports whether the field applies to the given document type.
func (r *FieldRegistry) Applicable(f *FieldDefinition, documentType string) bool {
	for _, dt := range f.DocumentTypes {
		if dt == DocTypeAll || dt == documentType {
			return true
		}
	}
	return false
}

// Label returns the display label for the given key, falling back to the
// raw key when the field is not registered.
func (r *FieldRegistry) Label(key string) string {
	if f := r.byKey[key]; f != nil {
		return f.Label
	}
	return key
}
