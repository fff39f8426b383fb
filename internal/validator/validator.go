// Package validator checks that a table can be populated before any rows are
// generated: that it exists, what its columns look like, and whether its
// foreign keys point at something real.
package validator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

var reservedWords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true, "where": true,
	"from": true, "table": true, "column": true, "join": true, "inner": true,
	"outer": true, "left": true, "right": true, "group": true, "order": true,
	"by": true, "having": true, "distinct": true, "limit": true, "offset": true,
	"as": true, "on": true, "and": true, "or": true, "not": true, "in": true,
	"like": true, "between": true, "is": true, "null": true, "true": true, "false": true,
}

type Issue struct {
	Column  string
	Message string
	Err     error
}

func (i Issue) String() string {
	if i.Column == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Column, i.Message)
}

type Report struct {
	Table    string
	Errors   []Issue
	Warnings []Issue
	// EmptyTables lists foreign key targets without rows, in edge order.
	EmptyTables []string
}

func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins the errors of the report as *catalog.StructuralError values, or
// returns nil when the report is valid.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, issue := range r.Errors {
		errs = append(errs, &catalog.StructuralError{
			Table:  r.Table,
			Column: issue.Column,
			Reason: issue.Message,
			Err:    issue.Err,
		})
	}
	return errors.Join(errs...)
}

func (r *Report) errorf(column string, err error, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{Column: column, Message: fmt.Sprintf(format, args...), Err: err})
}

func (r *Report) warnf(column, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Column: column, Message: fmt.Sprintf(format, args...)})
}

// ValidateTable checks the structure of table. The returned error is only
// set when the catalog itself could not be queried.
func ValidateTable(ctx context.Context, c catalog.Catalog, table string) (*Report, error) {
	report := &Report{Table: table}

	exists, err := c.TableExists(ctx, table)
	if err != nil {
		return nil, catalog.Unavailable("table exists", table, err)
	}
	if !exists {
		report.errorf("", catalog.ErrTableNotFound, "table does not exist")
		return report, nil
	}

	columns, err := c.GetColumns(ctx, table)
	if err != nil {
		return nil, catalog.Unavailable("get columns", table, err)
	}
	if len(columns) == 0 {
		report.errorf("", catalog.ErrColumnNotFound, "table has no columns")
		return report, nil
	}

	pk, err := c.GetPrimaryKey(ctx, table)
	if err != nil {
		return nil, catalog.Unavailable("get primary key", table, err)
	}
	if pk == "" {
		report.warnf("", "table has no primary key")
	}

	for _, col := range columns {
		switch {
		case !catalog.IsValidIdentifier(col.Name):
			report.errorf(col.Name, nil, "column name cannot be used in generated statements")
		case reservedWords[strings.ToLower(col.Name)]:
			report.warnf(col.Name, "column name is a reserved word")
		}
		if col.Type == catalog.TypeUnknown {
			report.warnf(col.Name, "type %q is not recognized, values will be placeholders unless configured", col.RawType)
		}
	}
	return report, nil
}

// ValidateForeignKeys checks every outgoing edge of table. Missing target
// tables or columns are errors; empty targets are warnings and are listed in
// EmptyTables.
func ValidateForeignKeys(ctx context.Context, c catalog.Catalog, table string) (*Report, error) {
	report := &Report{Table: table}

	edges, err := c.GetForeignKeys(ctx, table)
	if err != nil {
		return nil, catalog.Unavailable("get foreign keys", table, err)
	}

	checked := make(map[string][]catalog.Column)
	for _, edge := range edges {
		columns, ok := checked[edge.TargetTable]
		if !ok {
			exists, err := c.TableExists(ctx, edge.TargetTable)
			if err != nil {
				return nil, catalog.Unavailable("table exists", edge.TargetTable, err)
			}
			if !exists {
				report.errorf(edge.Column, catalog.ErrTableNotFound, "references missing table %s", edge.TargetTable)
				continue
			}
			columns, err = c.GetColumns(ctx, edge.TargetTable)
			if err != nil {
				return nil, catalog.Unavailable("get columns", edge.TargetTable, err)
			}
			checked[edge.TargetTable] = columns
		}

		if !hasColumn(columns, edge.TargetColumn) {
			report.errorf(edge.Column, catalog.ErrColumnNotFound, "references missing column %s.%s", edge.TargetTable, edge.TargetColumn)
			continue
		}

		count, err := c.RowCount(ctx, edge.TargetTable)
		if err != nil {
			return nil, catalog.Unavailable("row count", edge.TargetTable, err)
		}
		if count == 0 {
			report.warnf(edge.Column, "referenced table %s is empty", edge.TargetTable)
			if !contains(report.EmptyTables, edge.TargetTable) {
				report.EmptyTables = append(report.EmptyTables, edge.TargetTable)
			}
		}
	}
	return report, nil
}

// ValidateRecord checks a generated record against the column definitions
// of table and returns one issue per incompatible value.
func ValidateRecord(table *catalog.Table, record catalog.Record) []Issue {
	var issues []Issue
	for name, value := range record {
		col, ok := table.Column(name)
		if !ok {
			issues = append(issues, Issue{Column: name, Message: "column does not exist", Err: catalog.ErrColumnNotFound})
			continue
		}
		if value == nil {
			if !col.Nullable && !col.HasDefault {
				issues = append(issues, Issue{Column: name, Message: "NULL in a NOT NULL column"})
			}
			continue
		}
		if s, ok := value.(string); ok && col.MaxLength > 0 && len([]rune(s)) > col.MaxLength {
			issues = append(issues, Issue{Column: name, Message: fmt.Sprintf("value longer than %d characters", col.MaxLength)})
		}
		if msg := checkType(value, col.Type); msg != "" {
			issues = append(issues, Issue{Column: name, Message: msg})
		}
	}
	return issues
}

func checkType(value interface{}, t catalog.ColumnType) string {
	s := fmt.Sprint(value)
	switch t {
	case catalog.TypeInteger:
		switch value.(type) {
		case int, int32, int64, bool:
			return ""
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return fmt.Sprintf("%q is not an integer", s)
		}
	case catalog.TypeNumeric:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return fmt.Sprintf("%q is not a number", s)
		}
	case catalog.TypeBoolean:
		switch strings.ToLower(s) {
		case "true", "false", "1", "0", "t", "f", "yes", "no":
		default:
			return fmt.Sprintf("%q is not a boolean", s)
		}
	case catalog.TypeDate, catalog.TypeTimestamp:
		if _, ok := value.(time.Time); ok {
			return ""
		}
		if !isDate(s) {
			return fmt.Sprintf("%q is not a date", s)
		}
	}
	return ""
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, time.RFC3339Nano}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func hasColumn(columns []catalog.Column, name string) bool {
	for _, col := range columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
