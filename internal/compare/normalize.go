package compare

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/loanocr/internal/model"
)

var (
	numericJunkRe = regexp.MustCompile(`[^0-9.\-]`)
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDateRe   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
)

// NormalizeNumeric strips everything except digits, decimal point and
// minus sign ("$12,345.67" becomes "12345.67") and parses the remainder
// as a float.
func NormalizeNumeric(raw string) (float64, error) {
	cleaned := numericJunkRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return 0, eris.Errorf("normalize numeric: no digits in %q", raw)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "normalize numeric: parse %q", raw)
	}
	return v, nil
}

// NormalizeDate standardizes a date to YYYY-MM-DD. ISO input passes
// through verbatim; M/D/YY and M/D/YYYY are zero-padded, with 2-digit
// years expanded by prefixing "20".
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if isoDateRe.MatchString(raw) {
		return raw, nil
	}
	m := slashDateRe.FindStringSubmatch(raw)
	if m == nil {
		return "", eris.Errorf("normalize date: unrecognized format %q", raw)
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%s-%02d-%02d", year, month, day), nil
}

// NormalizeString standardizes free-text values for matching: trim and
// upper-case.
func NormalizeString(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// valuesEqual reports whether two raw values for the given field are
// considered the same once normalized per the field's value type. A
// normalization failure on either side makes the pair unequal, so
// garbled values surface as mismatches instead of being ignored.
func valuesEqual(f *model.FieldDefinition, a, b string) bool {
	switch f.Type {
	case model.ValueNumeric:
		na, errA := NormalizeNumeric(a)
		nb, errB := NormalizeNumeric(b)
		if errA != nil || errB != nil {
			return false
		}
		diff := na - nb
		if diff < 0 {
			diff = -diff
		}
		return diff <= f.Tolerance
	case model.ValueDate:
		da, errA := NormalizeDate(a)
		db, errB := NormalizeDate(b)
		if errA != nil || errB != nil {
			return false
		}
		return da == db
	default:
		return NormalizeString(a) == NormalizeString(b)
	}
}
