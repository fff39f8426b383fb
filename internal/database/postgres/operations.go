package postgres

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/database/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (p *Adapter) RowCount(ctx context.Context, tableName string) (int64, error) {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return 0, err
	}
	query, args, err := p.qb.Select("COUNT(*)").From(quote(tableName)).ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in table %s: %w", tableName, err)
	}
	return count, nil
}

func (p *Adapter) DistinctCount(ctx context.Context, tableName, columnName string) (int64, error) {
	if err := common.ValidateIdentifiers(tableName, []string{columnName}); err != nil {
		return 0, err
	}
	query, args, err := p.qb.
		Select(fmt.Sprintf("COUNT(DISTINCT %s)", quote(columnName))).
		From(quote(tableName)).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct %s.%s: %w", tableName, columnName, err)
	}
	return count, nil
}

func (p *Adapter) SampleDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]interface{}, error) {
	if err := common.ValidateIdentifiers(tableName, []string{columnName}); err != nil {
		return nil, err
	}
	col := quote(columnName)
	builder := p.qb.
		Select(col).
		Distinct().
		From(quote(tableName)).
		Where(col + " IS NOT NULL").
		OrderBy(col)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s.%s: %w", tableName, columnName, err)
	}
	defer rows.Close()

	var values []interface{}
	for rows.Next() {
		row, err := rows.Values()
		if err != nil {
			return nil, err
		}
		values = append(values, normalizeValue(row[0]))
	}
	return values, rows.Err()
}

// BulkInsert writes every record in one transaction with multi-row INSERTs
// kept under the bind parameter limit.
func (p *Adapter) BulkInsert(ctx context.Context, tableName string, columns []string, records []catalog.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := common.ValidateIdentifiers(tableName, columns); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quoted := quoteAll(columns)
	for _, chunk := range common.ChunkRecords(records, len(columns), common.MaxParamsPostgres) {
		builder := p.qb.Insert(quote(tableName)).Columns(quoted...)
		for _, record := range chunk {
			builder = builder.Values(record.Values(columns)...)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (p *Adapter) InsertOne(ctx context.Context, tableName string, columns []string, record catalog.Record) error {
	if err := common.ValidateIdentifiers(tableName, columns); err != nil {
		return err
	}
	query, args, err := p.qb.
		Insert(quote(tableName)).
		Columns(quoteAll(columns)...).
		Values(record.Values(columns)...).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, query, args...)
	return err
}

func (p *Adapter) GetTableData(ctx context.Context, tableName string, limit int) ([]catalog.Record, error) {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return nil, err
	}
	builder := p.qb.Select("*").From(quote(tableName))
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", tableName, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []catalog.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(catalog.Record, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (p *Adapter) TruncateTable(ctx context.Context, tableName string) error {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", quote(tableName)))
	return err
}

// normalizeValue turns pgx-decoded values into types the simple protocol can
// send back unchanged.
func normalizeValue(val interface{}) interface{} {
	switch v := val.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Time:
		if !v.Valid {
			return nil
		}
		secs := v.Microseconds / 1_000_000
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
	case pgtype.Interval, pgtype.Point:
		return fmt.Sprintf("%v", v)
	}
	return common.NormalizeValue(val)
}
