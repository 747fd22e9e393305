// Package compare reconciles extracted field values across every document
// attached to one loan application. It is a pure read-then-compute layer:
// it consumes the extractor's accumulated results, never writes, and never
// returns an error — unknown keys and unparsable values are treated as
// omissions or mismatches, not failures.
package compare

import (
	"github.com/sells-group/loanocr/internal/model"
)

// Comparator groups an application's results by field key and applies the
// registry's per-type equality rules.
type Comparator struct {
	registry *model.FieldRegistry
}

// NewComparator creates a Comparator over the given registry.
func NewComparator(registry *model.FieldRegistry) *Comparator {
	return &Comparator{registry: registry}
}

// Compare reconciles the given results. Output ordering is deterministic:
// fields in registry iteration order, records in their original append
// order. Results whose field key is not registered are dropped.
func (c *Comparator) Compare(results []model.Result) model.Comparison {
	groups := make(map[string][]model.Result)
	for _, res := range results {
		if c.registry.ByKey(res.FieldKey) == nil {
			continue
		}
		groups[res.FieldKey] = append(groups[res.FieldKey], res)
	}

	cmp := model.Comparison{
		MismatchFlags:         []model.MismatchFlag{},
		MissingRequiredFields: []string{},
	}

	for i := range c.registry.Fields {
		field := &c.registry.Fields[i]
		group := groups[field.Key]
		if len(group) == 0 {
			// Registry presence implies required: a field nobody
			// extracted anywhere is reported as missing.
			cmp.MissingRequiredFields = append(cmp.MissingRequiredFields, field.Key)
			continue
		}
		if len(group) < 2 {
			continue
		}
		if !c.groupMismatched(field, group) {
			continue
		}
		for _, rec := range group {
			cmp.MismatchFlags = append(cmp.MismatchFlags, model.MismatchFlag{
				FieldKey:         field.Key,
				DocumentID:       rec.DocumentID,
				Value:            rec.Value,
				ComparisonValues: otherDocumentValues(group, rec.DocumentID),
			})
		}
	}

	return cmp
}

// groupMismatched reports whether any pair among the group's distinct raw
// values fails the field's equality test. The pairwise check runs over
// distinct raw strings, not every individual record.
func (c *Comparator) groupMismatched(field *model.FieldDefinition, group []model.Result) bool {
	seen := make(map[string]struct{}, len(group))
	var distinct []string
	for _, rec := range group {
		if _, ok := seen[rec.Value]; ok {
			continue
		}
		seen[rec.Value] = struct{}{}
		distinct = append(distinct, rec.Value)
	}
	for i := 0; i < len(distinct); i++ {
		for j := i + 1; j < len(distinct); j++ {
			if !valuesEqual(field, distinct[i], distinct[j]) {
				return true
			}
		}
	}
	return false
}

// otherDocumentValues collects the raw values in the group that originate
// from documents other than docID, preserving record order.
func otherDocumentValues(group []model.Result, docID string) []string {
	values := make([]string, 0, len(group))
	for _, rec := range group {
		if rec.DocumentID == docID {
			continue
		}
		values = append(values, rec.Value)
	}
	return values
}
