package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/loanocr/internal/model"
)

// Matcher locates a field's value inside one page of text. Implementations
// are built per field from its display label and value type; alternate
// strategies (bounding-box aware, model-based) can be substituted without
// touching the comparator.
type Matcher interface {
	// Match returns the raw value found on the page and whether the page
	// contained the field at all.
	Match(page string) (string, bool)
}

// patternMatcher anchors on the field's display label and captures the
// value with a value-type-specific pattern.
type patternMatcher struct {
	re *regexp.Regexp
}

func (m *patternMatcher) Match(page string) (string, bool) {
	sub := m.re.FindStringSubmatch(page)
	if sub == nil {
		return "", false
	}
	value := strings.TrimSpace(sub[1])
	if value == "" {
		return "", false
	}
	return value, true
}

const (
	// Optional currency symbol, then a digit/comma run with an optional
	// decimal part.
	numericValuePat = `([$]? ?-?[0-9][0-9,]*(?:\.[0-9]+)?)`
	// ISO YYYY-MM-DD or slash-delimited M/D/YY and M/D/YYYY.
	dateValuePat = `([0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{1,2}/[0-9]{1,2}/[0-9]{2,4})`
	// Remainder of the label's line. The first captured character may
	// not be a colon or whitespace, so an optional separator can never
	// leak into the value when the rest of the line is empty.
	stringValuePat = `([^\s:][^\r\n]*)`
)

// NewMatcher builds the label-anchored matcher for a field. Matching is
// case-insensitive; the label may be followed by a colon or dash before
// the value.
func NewMatcher(f *model.FieldDefinition) Matcher {
	var valuePat string
	switch f.Type {
	case model.ValueNumeric:
		valuePat = numericValuePat
	case model.ValueDate:
		valuePat = dateValuePat
	default:
		valuePat = stringValuePat
	}
	// Separator stays on the label's line: a value is never picked up
	// from a following line.
	pattern := `(?i)` + regexp.QuoteMeta(f.Label) + `[ \t]*[:\-]?[ \t]*` + valuePat
	return &patternMatcher{re: regexp.MustCompile(pattern)}
}
