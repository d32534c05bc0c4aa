package indexer

import (
	"fmt"
	"strings"
)

// ColumnDef defines a single column for a table.
// Column lists are the single source of truth for CREATE TABLE and INSERT statements.
type ColumnDef struct {
	// Name is the column name
	Name string

	// Type is the PostgreSQL column type including constraints, e.g. "BIGINT NOT NULL"
	Type string

	// PrimaryKey marks the column as part of the composite primary key
	PrimaryKey bool
}

// Validate checks if the column definition is valid.
func (c ColumnDef) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if c.Type == "" {
		return fmt.Errorf("column %s: type cannot be empty", c.Name)
	}
	return nil
}

// ColumnsToNameList extracts just the column names from a list of ColumnDef.
// Useful for INSERT statements.
func ColumnsToNameList(columns []ColumnDef) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names
}

// PrimaryKeyNames returns the names of the primary key columns in order.
func PrimaryKeyNames(columns []ColumnDef) []string {
	var names []string
	for _, col := range columns {
		if col.PrimaryKey {
			names = append(names, col.Name)
		}
	}
	return names
}

// ColumnsToSchemaSQL renders the body of a CREATE TABLE statement.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s %s", col.Name, col.Type))
	}
	if pk := PrimaryKeyNames(columns); len(pk) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// CreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement.
func CreateTableSQL(table string, columns []ColumnDef) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t\t\t%s\n\t\t)", table, ColumnsToSchemaSQL(columns))
}

// InsertSQL renders a positional INSERT for every column. A non-empty onConflict
// clause is appended verbatim.
func InsertSQL(table string, columns []ColumnDef, onConflict string) string {
	names := ColumnsToNameList(columns)
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if onConflict != "" {
		query += " " + onConflict
	}
	return query
}

// ValidateColumns validates all columns in a list.
// Returns the first validation error encountered.
func ValidateColumns(columns []ColumnDef) error {
	for _, col := range columns {
		if err := col.Validate(); err != nil {
			return err
		}
	}
	return nil
}
