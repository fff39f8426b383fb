package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

func (m *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

func (m *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
	`, tableName).Scan(&count)
	return count > 0, err
}

// GetColumns reads information_schema.columns. COLUMN_KEY is 'UNI' only for the
// first column of a single-column unique index; 'PRI' marks every primary key
// member, so a primary key is unique on its own only when it has one column.
func (m *Adapter) GetColumns(ctx context.Context, tableName string) ([]catalog.Column, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT
			column_name,
			column_type,
			is_nullable,
			column_default,
			character_maximum_length,
			column_key,
			extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []catalog.Column
	pkCount := 0
	for rows.Next() {
		var column catalog.Column
		var isNullable, columnKey, extra string
		var columnDefault sql.NullString
		var charMaxLength sql.NullInt64

		if err := rows.Scan(&column.Name, &column.RawType, &isNullable, &columnDefault,
			&charMaxLength, &columnKey, &extra); err != nil {
			return nil, err
		}

		column.Type = catalog.ParseColumnType(column.RawType)
		column.Nullable = isNullable == "YES"
		column.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		column.HasDefault = columnDefault.Valid || column.AutoIncrement
		column.PrimaryKey = columnKey == "PRI"
		column.Unique = columnKey == "UNI"
		if charMaxLength.Valid {
			column.MaxLength = int(charMaxLength.Int64)
		}
		if column.PrimaryKey {
			pkCount++
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if pkCount == 1 {
		for i := range columns {
			if columns[i].PrimaryKey {
				columns[i].Unique = true
			}
		}
	}
	return columns, nil
}

func (m *Adapter) GetPrimaryKey(ctx context.Context, tableName string) (string, error) {
	var pk string
	err := m.db.QueryRowContext(ctx, `
		SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
		LIMIT 1
	`, tableName).Scan(&pk)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return pk, err
}

func (m *Adapter) GetForeignKeys(ctx context.Context, tableName string) ([]catalog.ForeignKeyEdge, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT
			k.column_name,
			k.referenced_table_name,
			k.referenced_column_name,
			r.update_rule,
			r.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
			ON k.constraint_name = r.constraint_name
			AND k.table_schema = r.constraint_schema
		WHERE k.table_schema = DATABASE()
			AND k.table_name = ?
			AND k.referenced_table_name IS NOT NULL
		ORDER BY k.constraint_name, k.ordinal_position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []catalog.ForeignKeyEdge
	for rows.Next() {
		var edge catalog.ForeignKeyEdge
		if err := rows.Scan(&edge.Column, &edge.TargetTable, &edge.TargetColumn, &edge.OnUpdate, &edge.OnDelete); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (m *Adapter) HasUniqueConstraint(ctx context.Context, tableName, columnName string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.statistics s
		WHERE s.table_schema = DATABASE()
			AND s.table_name = ?
			AND s.column_name = ?
			AND s.non_unique = 0
			AND s.index_name <> 'PRIMARY'
			AND (
				SELECT COUNT(*) FROM information_schema.statistics s2
				WHERE s2.table_schema = s.table_schema
					AND s2.table_name = s.table_name
					AND s2.index_name = s.index_name
			) = 1
	`, tableName, columnName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check unique constraint on %s.%s: %w", tableName, columnName, err)
	}
	return count > 0, nil
}
