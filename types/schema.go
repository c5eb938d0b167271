package types

import (
	"fmt"
	"strings"
)

// System columns added by the record store to every record.
const (
	ColumnID        = "id"
	ColumnOwner     = "user"
	ColumnCreatedAt = "created_at"
)

// Record is one flat row of finance data keyed by column name.
type Record map[string]any

// ColumnDefinition declares one record column
type ColumnDefinition struct {
	Name        string     `json:"name" yaml:"name"`
	Type        ColumnType `json:"type" yaml:"type"`
	Nullable    bool       `json:"nullable" yaml:"nullable"`
	Scale       int32      `json:"scale,omitempty" yaml:"scale,omitempty"`
	MaxLength   int        `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Default     any        `json:"default,omitempty" yaml:"default,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Schema is the declared, ordered column set of one record type.
type Schema struct {
	Type    RecordType         `json:"type"`
	Columns []ColumnDefinition `json:"columns"`
}

// Column looks a column up by name, system columns included.
func (s Schema) Column(name string) (ColumnDefinition, bool) {
	for _, col := range s.AllColumns() {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDefinition{}, false
}

// AllColumns returns the system id column, the declared columns, then the
// owner and creation time columns.
func (s Schema) AllColumns() []ColumnDefinition {
	cols := make([]ColumnDefinition, 0, len(s.Columns)+3)
	cols = append(cols, ColumnDefinition{Name: ColumnID, Type: ColumnTypeNumber})
	cols = append(cols, s.Columns...)
	cols = append(cols,
		ColumnDefinition{Name: ColumnOwner, Type: ColumnTypeText},
		ColumnDefinition{Name: ColumnCreatedAt, Type: ColumnTypeDate},
	)
	return cols
}

// ColumnNames returns AllColumns' names in order.
func (s Schema) ColumnNames() []string {
	cols := s.AllColumns()
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

// ColumnTypes maps every column name to its type.
func (s Schema) ColumnTypes() map[string]ColumnType {
	cols := s.AllColumns()
	m := make(map[string]ColumnType, len(cols))
	for _, col := range cols {
		m[col.Name] = col.Type
	}
	return m
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationErrors collects every invalid field of one input.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Reason)
	}
	return strings.Join(parts, "; ")
}

// Coerce validates input against the declared columns and converts every
// value to its canonical form: json.Number rounded to the column scale for
// numbers, time.Time in UTC for dates, bool, string. Unknown and system keys
// are dropped. Missing values take the column default, or nil when the column
// is nullable.
func (s Schema) Coerce(input map[string]any) (Record, error) {
	out := make(Record, len(s.Columns))
	var errs ValidationErrors

	for _, col := range s.Columns {
		raw, present := input[col.Name]
		if !present || raw == nil || raw == "" {
			switch {
			case col.Default != nil:
				raw = col.Default
			case col.Nullable:
				out[col.Name] = nil
				continue
			default:
				errs = append(errs, FieldError{Field: col.Name, Reason: "is required"})
				continue
			}
		}

		v, err := coerce(col, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: col.Name, Reason: err.Error()})
			continue
		}
		out[col.Name] = v
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func coerce(col ColumnDefinition, raw any) (any, error) {
	switch col.Type {
	case ColumnTypeNumber:
		return coerceNumber(raw, col.Scale)
	case ColumnTypeBoolean:
		return coerceBool(raw)
	case ColumnTypeDate:
		return coerceDate(raw)
	default:
		return coerceText(raw, col.MaxLength)
	}
}
