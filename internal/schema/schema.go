// Package schema defines field-level contracts for each record kind and
// validates raw spreadsheet rows against them.
//
// Rules are declarative [FieldSpec] values interpreted by [Validate]; adding
// a record kind means declaring a new spec table, not writing new checks.
// Validation is pure and side-effect-free: it never touches storage or the
// audit log (callers do), and it collects every problem in a row rather than
// stopping at the first one.
package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Row is one raw spreadsheet row: a mapping of column header to cell value.
// Numeric cells arrive stringified by the ingest readers.
type Row map[string]string

// FieldType represents the expected data type for a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
	FieldDate
	FieldEnum
)

// FieldSpec defines the validation rules for a single column.
type FieldSpec struct {
	Name       string    // Column header name (must match the sheet exactly)
	Type       FieldType // Expected data type
	Required   bool      // Column must be present with a non-empty value
	EnumValues []string  // Valid values for FieldEnum columns
	Default    string    // Applied during coercion when the cell is empty
}

// ValidationError is a single human-readable validation failure for a field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// Messages joins validation errors into one human-readable string.
func Messages(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Message
	}
	return strings.Join(parts, "; ")
}

// dateShape is the literal YYYY-MM-DD pattern: four digits, hyphen, two
// digits, hyphen, two digits. Deliberately a shape check, not a calendar
// parse.
var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks one raw row against a spec table and returns every
// failure. An empty result means the row is accepted. Missing and empty
// required cells are treated alike; unknown extra columns are ignored.
func Validate(row Row, specs []FieldSpec) []ValidationError {
	var errs []ValidationError

	for _, spec := range specs {
		value := strings.TrimSpace(row[spec.Name])

		if value == "" {
			if spec.Required {
				errs = append(errs, ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("Missing required column: %s", spec.Name),
				})
			}
			continue
		}

		switch spec.Type {
		case FieldInteger:
			if _, err := strconv.Atoi(value); err != nil {
				errs = append(errs, ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("%s must be a number, got: %s", spec.Name, value),
				})
			}
		case FieldDate:
			if !dateShape.MatchString(value) {
				errs = append(errs, ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("%s must be YYYY-MM-DD format, got: %s", spec.Name, value),
				})
			}
		case FieldEnum:
			if !containsFold(spec.EnumValues, value) {
				errs = append(errs, ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("%s must be one of: %s, got: %s", spec.Name, strings.Join(spec.EnumValues, ", "), value),
				})
			}
		}
	}

	return errs
}

func containsFold(values []string, v string) bool {
	for _, ev := range values {
		if strings.EqualFold(ev, v) {
			return true
		}
	}
	return false
}
