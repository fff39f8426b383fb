package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrCatalogUnavailable is returned when the database cannot answer a catalog
	// query or the connection is lost mid run.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrConstraintViolation marks a row the database rejected for data reasons.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrEmptyDependency is returned when a NOT NULL foreign key points at a table with no rows.
	ErrEmptyDependency = errors.New("empty dependency")

	ErrUnresolvableUniqueness = errors.New("unresolvable uniqueness")
	ErrCyclicDependency       = errors.New("cyclic dependency")
	ErrTableNotFound          = errors.New("table not found")
	ErrColumnNotFound         = errors.New("column not found")
)

// CatalogError wraps a failed catalog operation.
type CatalogError struct {
	Op    string
	Table string
	Err   error
}

func (e *CatalogError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("catalog: %s %q: %v", e.Op, e.Table, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Is reports every CatalogError as ErrCatalogUnavailable.
func (e *CatalogError) Is(target error) bool {
	return target == ErrCatalogUnavailable
}

// Unavailable wraps err in a CatalogError unless it already is one.
func Unavailable(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CatalogError
	if errors.As(err, &ce) {
		return err
	}
	return &CatalogError{Op: op, Table: table, Err: err}
}

// ConstraintError is a row-level rejection, reported with the offending record.
type ConstraintError struct {
	Table  string
	Record Record
	Err    error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("insert into %q rejected: %v", e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation
}

type EmptyDependencyError struct {
	Table  string
	Column string
	Target string
}

func (e *EmptyDependencyError) Error() string {
	return fmt.Sprintf("column %s.%s is NOT NULL but referenced table %q has no rows; populate %q first",
		e.Table, e.Column, e.Target, e.Target)
}

func (e *EmptyDependencyError) Is(target error) bool {
	return target == ErrEmptyDependency
}

// StructuralError reports a schema the engine cannot work with, such as a
// foreign key pointing at a missing table.
type StructuralError struct {
	Table  string
	Column string
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Reason)
}

func (e *StructuralError) Unwrap() error { return e.Err }

func IsCatalogUnavailable(err error) bool { return errors.Is(err, ErrCatalogUnavailable) }

func IsEmptyDependency(err error) bool { return errors.Is(err, ErrEmptyDependency) }

func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// MySQL error numbers that mean the row itself was bad.
var mysqlDataErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1264: true, // out of range value
	1292: true, // incorrect datetime value
	1364: true, // field doesn't have a default value
	1366: true, // incorrect integer value
	1406: true, // data too long
	1451: true, // cannot delete or update a parent row
	1452: true, // cannot add or update a child row
	3819: true, // check constraint violated
}

// IsDataError reports whether err is a rejection of the row's data (constraint
// violation, bad value, too long) rather than a transport or server failure.
func IsDataError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConstraintViolation) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 22: data exception, class 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlDataErrors[myErr.Number]
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrConstraint, sqlite3.ErrMismatch, sqlite3.ErrTooBig, sqlite3.ErrRange:
			return true
		}
		return false
	}

	return containsAny(err.Error(),
		"violates unique constraint",
		"violates foreign key constraint",
		"violates not-null constraint",
		"violates check constraint",
		"UNIQUE constraint failed",
		"NOT NULL constraint failed",
		"FOREIGN KEY constraint failed",
		"CHECK constraint failed",
		"Error 1062",
		"Error 1452",
	)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
