// Package catalog defines the schema catalog contract the population engine
// consumes, the generic relational model it reads, and the error taxonomy
// shared by every component.
package catalog

import (
	"context"
	"regexp"
)

// Catalog is implemented by every dialect adapter. A Catalog is owned by one
// population run at a time and is not used concurrently by the engine.
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	TableExists(ctx context.Context, table string) (bool, error)
	GetColumns(ctx context.Context, table string) ([]Column, error)
	GetPrimaryKey(ctx context.Context, table string) (string, error)
	GetForeignKeys(ctx context.Context, table string) ([]ForeignKeyEdge, error)

	RowCount(ctx context.Context, table string) (int64, error)
	DistinctCount(ctx context.Context, table, column string) (int64, error)
	// HasUniqueConstraint reports a single-column UNIQUE constraint on column.
	// A primary key does not count.
	HasUniqueConstraint(ctx context.Context, table, column string) (bool, error)
	SampleDistinctValues(ctx context.Context, table, column string, limit int) ([]interface{}, error)

	// BulkInsert writes all records in one transaction. On failure nothing
	// from the batch is left behind.
	BulkInsert(ctx context.Context, table string, columns []string, records []Record) error
	InsertOne(ctx context.Context, table string, columns []string, record Record) error

	Ping(ctx context.Context) error
}

// LoadTable assembles a Table from the individual catalog calls.
func LoadTable(ctx context.Context, c Catalog, name string) (*Table, error) {
	exists, err := c.TableExists(ctx, name)
	if err != nil {
		return nil, Unavailable("table exists", name, err)
	}
	if !exists {
		return nil, &StructuralError{Table: name, Reason: "table does not exist", Err: ErrTableNotFound}
	}

	columns, err := c.GetColumns(ctx, name)
	if err != nil {
		return nil, Unavailable("get columns", name, err)
	}
	pk, err := c.GetPrimaryKey(ctx, name)
	if err != nil {
		return nil, Unavailable("get primary key", name, err)
	}
	fks, err := c.GetForeignKeys(ctx, name)
	if err != nil {
		return nil, Unavailable("get foreign keys", name, err)
	}

	return &Table{
		Name:        name,
		Columns:     columns,
		PrimaryKey:  pk,
		ForeignKeys: fks,
	}, nil
}

// validIdentifier validates SQL identifiers (table/column names) before they
// are interpolated into dynamic SQL.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

func IsValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}
