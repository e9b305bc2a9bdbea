package bill

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Form holds the raw values entered in the new bill form
type Form struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// FieldError describes one field that failed its constraint
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError is returned when one or more form fields are invalid
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "invalid bill form: " + strings.Join(parts, ", ")
}

// Invalid reports whether field failed validation
func (e *ValidationError) Invalid(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validate checks every field against the constraints of the form inputs
func (f Form) Validate() error {
	var errs []FieldError
	add := func(field, reason string) {
		errs = append(errs, FieldError{Field: field, Reason: reason})
	}

	if !slices.Contains(Categories, f.Type) {
		add("type", "unknown expense type")
	}
	if strings.TrimSpace(f.Name) == "" {
		add("name", "required")
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(f.Date)); err != nil {
		add("date", "must be a date (YYYY-MM-DD)")
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(f.Amount)); err != nil {
		add("amount", "must be a number")
	}
	if v := strings.TrimSpace(f.VAT); v != "" {
		if _, err := decimal.NewFromString(v); err != nil {
			add("vat", "must be a number")
		}
	}
	if _, err := strconv.Atoi(strings.TrimSpace(f.Pct)); err != nil {
		add("pct", "must be a number")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// bill converts a validated form into a bill record
func (f Form) bill() Bill {
	amount, _ := decimal.NewFromString(strings.TrimSpace(f.Amount))
	pct, _ := strconv.Atoi(strings.TrimSpace(f.Pct))
	return Bill{
		Type:       f.Type,
		Name:       f.Name,
		Date:       strings.TrimSpace(f.Date),
		Amount:     amount,
		VAT:        strings.TrimSpace(f.VAT),
		Pct:        pct,
		Commentary: f.Commentary,
	}
}
