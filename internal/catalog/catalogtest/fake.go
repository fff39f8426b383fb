// Package catalogtest provides an in-memory catalog.Catalog that enforces
// NOT NULL, unique and foreign key constraints, for engine tests.
package catalogtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

type table struct {
	def  catalog.Table
	rows []catalog.Record
	next int64
}

type Fake struct {
	mu     sync.Mutex
	tables map[string]*table

	// Fail injects errors, keyed by "Op" or "Op:table" (e.g. "RowCount:users").
	Fail map[string]error

	// Reject, when set, is consulted for every row before it is stored.
	Reject func(table string, record catalog.Record) error

	PingErr error

	BulkCalls   int
	InsertCalls int
}

func New() *Fake {
	return &Fake{
		tables: make(map[string]*table),
		Fail:   make(map[string]error),
	}
}

// AddTable registers a table and optional existing rows. Columns with
// AutoIncrement get a generated value when omitted.
func (f *Fake) AddTable(def catalog.Table, rows ...catalog.Record) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &table{def: def}
	for _, r := range rows {
		t.rows = append(t.rows, f.withDefaults(t, r))
	}
	f.tables[def.Name] = t
	return f
}

// Rows returns a copy of the stored rows.
func (f *Fake) Rows(name string) []catalog.Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tables[name]
	if !ok {
		return nil
	}
	out := make([]catalog.Record, len(t.rows))
	copy(out, t.rows)
	return out
}

func (f *Fake) fail(op, name string) error {
	if err, ok := f.Fail[op+":"+name]; ok {
		return err
	}
	return f.Fail[op]
}

func (f *Fake) lookup(name string) (*table, error) {
	t, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", name)
	}
	return t, nil
}

func (f *Fake) ListTables(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListTables", ""); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) TableExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("TableExists", name); err != nil {
		return false, err
	}
	_, ok := f.tables[name]
	return ok, nil
}

func (f *Fake) GetColumns(ctx context.Context, name string) ([]catalog.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetColumns", name); err != nil {
		return nil, err
	}
	t, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]catalog.Column{}, t.def.Columns...), nil
}

func (f *Fake) GetPrimaryKey(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetPrimaryKey", name); err != nil {
		return "", err
	}
	t, err := f.lookup(name)
	if err != nil {
		return "", err
	}
	return t.def.PrimaryKey, nil
}

func (f *Fake) GetForeignKeys(ctx context.Context, name string) ([]catalog.ForeignKeyEdge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetForeignKeys", name); err != nil {
		return nil, err
	}
	t, ok := f.tables[name]
	if !ok {
		return nil, nil
	}
	return append([]catalog.ForeignKeyEdge{}, t.def.ForeignKeys...), nil
}

func (f *Fake) RowCount(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RowCount", name); err != nil {
		return 0, err
	}
	t, err := f.lookup(name)
	if err != nil {
		return 0, err
	}
	return int64(len(t.rows)), nil
}

func (f *Fake) distinct(t *table, column string) []interface{} {
	seen := make(map[string]bool)
	var values []interface{}
	for _, r := range t.rows {
		v := r[column]
		if v == nil {
			continue
		}
		k := key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		values = append(values, v)
	}
	return values
}

func (f *Fake) DistinctCount(ctx context.Context, name, column string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DistinctCount", name); err != nil {
		return 0, err
	}
	t, err := f.lookup(name)
	if err != nil {
		return 0, err
	}
	return int64(len(f.distinct(t, column))), nil
}

func (f *Fake) HasUniqueConstraint(ctx context.Context, name, column string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("HasUniqueConstraint", name); err != nil {
		return false, err
	}
	t, err := f.lookup(name)
	if err != nil {
		return false, err
	}
	col, ok := t.def.Column(column)
	return ok && col.Unique && !col.PrimaryKey, nil
}

// SampleDistinctValues returns distinct values in first-insertion order.
func (f *Fake) SampleDistinctValues(ctx context.Context, name, column string, limit int) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SampleDistinctValues", name); err != nil {
		return nil, err
	}
	t, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	values := f.distinct(t, column)
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return values, nil
}

func (f *Fake) BulkInsert(ctx context.Context, name string, columns []string, records []catalog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BulkCalls++
	if err := f.fail("BulkInsert", name); err != nil {
		return err
	}
	t, err := f.lookup(name)
	if err != nil {
		return err
	}

	// all or nothing: validate against a scratch copy first
	staged := make([]catalog.Record, 0, len(records))
	scratch := &table{def: t.def, rows: append([]catalog.Record{}, t.rows...), next: t.next}
	for _, r := range records {
		row := f.withDefaults(scratch, project(r, columns))
		if err := f.check(scratch, row); err != nil {
			return err
		}
		scratch.rows = append(scratch.rows, row)
		staged = append(staged, row)
	}

	t.rows = append(t.rows, staged...)
	t.next = scratch.next
	return nil
}

func (f *Fake) InsertOne(ctx context.Context, name string, columns []string, record catalog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InsertCalls++
	if err := f.fail("InsertOne", name); err != nil {
		return err
	}
	t, err := f.lookup(name)
	if err != nil {
		return err
	}

	next := t.next
	row := f.withDefaults(t, project(record, columns))
	if err := f.check(t, row); err != nil {
		t.next = next
		return err
	}
	t.rows = append(t.rows, row)
	return nil
}

// TruncateTable drops every row and resets the auto-increment counter.
func (f *Fake) TruncateTable(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("TruncateTable", name); err != nil {
		return err
	}
	t, err := f.lookup(name)
	if err != nil {
		return err
	}
	t.rows = nil
	t.next = 0
	return nil
}

// GetTableData returns up to limit stored rows; limit <= 0 returns all.
func (f *Fake) GetTableData(ctx context.Context, name string, limit int) ([]catalog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetTableData", name); err != nil {
		return nil, err
	}
	t, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	n := len(t.rows)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]catalog.Record, n)
	copy(out, t.rows[:n])
	return out, nil
}

func (f *Fake) Ping(ctx context.Context) error {
	return f.PingErr
}

func project(r catalog.Record, columns []string) catalog.Record {
	out := make(catalog.Record, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

func (f *Fake) withDefaults(t *table, r catalog.Record) catalog.Record {
	out := make(catalog.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, col := range t.def.Columns {
		if _, ok := out[col.Name]; ok || !col.AutoIncrement {
			continue
		}
		t.next++
		out[col.Name] = t.next
	}
	return out
}

func (f *Fake) check(t *table, row catalog.Record) error {
	for _, col := range t.def.Columns {
		v, present := row[col.Name]
		if v == nil && !col.Nullable && !(col.HasDefault && !present) {
			return fmt.Errorf("%w: null value in column %q of %q", catalog.ErrConstraintViolation, col.Name, t.def.Name)
		}
		if v == nil || !col.Unique {
			continue
		}
		k := key(v)
		for _, existing := range t.rows {
			if existing[col.Name] != nil && key(existing[col.Name]) == k {
				return fmt.Errorf("%w: duplicate value %v for %s.%s", catalog.ErrConstraintViolation, v, t.def.Name, col.Name)
			}
		}
	}

	for _, fk := range t.def.ForeignKeys {
		v := row[fk.Column]
		if v == nil {
			continue
		}
		target, ok := f.tables[fk.TargetTable]
		if fk.TargetTable == t.def.Name {
			target = t
		}
		if !ok && target == nil {
			return fmt.Errorf("%w: %s.%s references missing table %s", catalog.ErrConstraintViolation, t.def.Name, fk.Column, fk.TargetTable)
		}
		found := false
		for _, r := range target.rows {
			if r[fk.TargetColumn] != nil && key(r[fk.TargetColumn]) == key(v) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s.%s=%v has no match in %s", catalog.ErrConstraintViolation, t.def.Name, fk.Column, v, fk.TargetTable)
		}
	}

	if f.Reject != nil {
		if err := f.Reject(t.def.Name, row); err != nil {
			return err
		}
	}
	return nil
}

func key(v interface{}) string {
	return fmt.Sprintf("%v", v)
}
