package common

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Masterminds/squirrel"
)

// SQLStore holds the data-plane operations shared by the database/sql backed
// adapters (MySQL, SQLite). Dialect differences are limited to identifier
// quoting, placeholder format and the bind parameter ceiling.
type SQLStore struct {
	DB        *sql.DB
	Builder   squirrel.StatementBuilderType
	Quote     func(string) string
	MaxParams int
}

func (s *SQLStore) RowCount(ctx context.Context, table string) (int64, error) {
	if err := ValidateIdentifiers(table, nil); err != nil {
		return 0, err
	}
	query, args, err := s.Builder.Select("COUNT(*)").From(s.Quote(table)).ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in table %s: %w", table, err)
	}
	return count, nil
}

func (s *SQLStore) DistinctCount(ctx context.Context, table, column string) (int64, error) {
	if err := ValidateIdentifiers(table, []string{column}); err != nil {
		return 0, err
	}
	query, args, err := s.Builder.
		Select(fmt.Sprintf("COUNT(DISTINCT %s)", s.Quote(column))).
		From(s.Quote(table)).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct %s.%s: %w", table, column, err)
	}
	return count, nil
}

// SampleDistinctValues returns up to limit distinct non-null values, ordered so
// repeated calls see the same sample.
func (s *SQLStore) SampleDistinctValues(ctx context.Context, table, column string, limit int) ([]interface{}, error) {
	if err := ValidateIdentifiers(table, []string{column}); err != nil {
		return nil, err
	}
	col := s.Quote(column)
	builder := s.Builder.
		Select(col).
		Distinct().
		From(s.Quote(table)).
		Where(col + " IS NOT NULL").
		OrderBy(col)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []interface{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, NormalizeValue(v))
	}
	return values, rows.Err()
}

func (s *SQLStore) quotedColumns(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = s.Quote(col)
	}
	return quoted
}

// BulkInsert writes every record inside one transaction using multi-row
// INSERT statements. Any failure rolls the whole batch back.
func (s *SQLStore) BulkInsert(ctx context.Context, table string, columns []string, records []catalog.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ValidateIdentifiers(table, columns); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	quoted := s.quotedColumns(columns)
	for _, chunk := range ChunkRecords(records, len(columns), s.MaxParams) {
		builder := s.Builder.Insert(s.Quote(table)).Columns(quoted...)
		for _, record := range chunk {
			builder = builder.Values(record.Values(columns)...)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *SQLStore) InsertOne(ctx context.Context, table string, columns []string, record catalog.Record) error {
	if err := ValidateIdentifiers(table, columns); err != nil {
		return err
	}
	query, args, err := s.Builder.
		Insert(s.Quote(table)).
		Columns(s.quotedColumns(columns)...).
		Values(record.Values(columns)...).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, query, args...)
	return err
}

// GetTableData reads up to limit rows (all rows when limit <= 0).
func (s *SQLStore) GetTableData(ctx context.Context, table string, limit int) ([]catalog.Record, error) {
	if err := ValidateIdentifiers(table, nil); err != nil {
		return nil, err
	}
	builder := s.Builder.Select("*").From(s.Quote(table))
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []catalog.Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(catalog.Record, len(columns))
		for i, col := range columns {
			row[col] = NormalizeValue(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
