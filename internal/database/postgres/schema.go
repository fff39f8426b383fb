package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

func (p *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]string, 0, 32)
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

func (p *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = $1 AND table_schema = current_schema()
		)
	`, tableName).Scan(&exists)
	return exists, err
}

type indexInfo struct {
	primary      bool
	singleColumn bool
}

// uniqueIndexColumns maps each column covered by a non-partial unique index
// (primary keys included) to the indexes it belongs to.
func (p *Adapter) uniqueIndexColumns(ctx context.Context, tableName string) (map[string][]indexInfo, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.attname, i.indisprimary, i.indnatts::int
		FROM pg_index i
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_namespace ns ON t.relnamespace = ns.oid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
		WHERE t.relname = $1
		  AND ns.nspname = current_schema()
		  AND i.indisunique
		  AND i.indpred IS NULL
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]indexInfo)
	for rows.Next() {
		var column string
		var primary bool
		var natts int
		if err := rows.Scan(&column, &primary, &natts); err != nil {
			return nil, err
		}
		result[column] = append(result[column], indexInfo{primary: primary, singleColumn: natts == 1})
	}
	return result, rows.Err()
}

func (p *Adapter) GetColumns(ctx context.Context, tableName string) ([]catalog.Column, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT
			c.column_name,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.is_identity
		FROM information_schema.columns c
		WHERE c.table_name = $1 AND c.table_schema = current_schema()
		ORDER BY c.ordinal_position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []catalog.Column
	for rows.Next() {
		var column catalog.Column
		var isNullable, isIdentity string
		var columnDefault sql.NullString
		var charMaxLength sql.NullInt64

		if err := rows.Scan(&column.Name, &column.RawType, &isNullable, &columnDefault, &charMaxLength, &isIdentity); err != nil {
			return nil, err
		}

		column.Type = catalog.ParseColumnType(column.RawType)
		column.Nullable = isNullable == "YES"
		column.HasDefault = columnDefault.Valid || isIdentity == "YES"
		column.AutoIncrement = isIdentity == "YES" ||
			(columnDefault.Valid && strings.Contains(strings.ToLower(columnDefault.String), "nextval"))
		if charMaxLength.Valid {
			column.MaxLength = int(charMaxLength.Int64)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes, err := p.uniqueIndexColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		for _, idx := range indexes[columns[i].Name] {
			if idx.primary {
				columns[i].PrimaryKey = true
			}
			if idx.singleColumn {
				columns[i].Unique = true
			}
		}
	}

	return columns, nil
}

func (p *Adapter) GetPrimaryKey(ctx context.Context, tableName string) (string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_namespace ns ON t.relnamespace = ns.oid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
		WHERE t.relname = $1 AND ns.nspname = current_schema() AND i.indisprimary
		ORDER BY a.attnum
		LIMIT 1
	`, tableName)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var pk string
	if rows.Next() {
		if err := rows.Scan(&pk); err != nil {
			return "", err
		}
	}
	return pk, rows.Err()
}

func (p *Adapter) GetForeignKeys(ctx context.Context, tableName string) ([]catalog.ForeignKeyEdge, error) {
	// UNNEST with ordinality pairs each source column with its target column
	// for composite keys.
	rows, err := p.pool.Query(ctx, `
		SELECT
			src_attr.attname AS column_name,
			tgt_table.relname AS foreign_table_name,
			tgt_attr.attname AS foreign_column_name,
			CASE con.confupdtype
				WHEN 'a' THEN 'NO ACTION'
				WHEN 'r' THEN 'RESTRICT'
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL'
				WHEN 'd' THEN 'SET DEFAULT'
			END AS on_update_action,
			CASE con.confdeltype
				WHEN 'a' THEN 'NO ACTION'
				WHEN 'r' THEN 'RESTRICT'
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL'
				WHEN 'd' THEN 'SET DEFAULT'
			END AS on_delete_action
		FROM pg_constraint con
		JOIN pg_class src_table ON con.conrelid = src_table.oid
		JOIN pg_namespace ns ON src_table.relnamespace = ns.oid
		CROSS JOIN LATERAL UNNEST(con.conkey, con.confkey) WITH ORDINALITY AS cols(src_col, tgt_col, ord)
		JOIN pg_attribute src_attr ON src_attr.attrelid = src_table.oid AND src_attr.attnum = cols.src_col
		JOIN pg_class tgt_table ON con.confrelid = tgt_table.oid
		JOIN pg_attribute tgt_attr ON tgt_attr.attrelid = tgt_table.oid AND tgt_attr.attnum = cols.tgt_col
		WHERE src_table.relname = $1
		  AND ns.nspname = current_schema()
		  AND con.contype = 'f'
		ORDER BY con.conname, cols.ord
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []catalog.ForeignKeyEdge
	for rows.Next() {
		var edge catalog.ForeignKeyEdge
		var onUpdate, onDelete sql.NullString
		if err := rows.Scan(&edge.Column, &edge.TargetTable, &edge.TargetColumn, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		edge.OnUpdate = onUpdate.String
		edge.OnDelete = onDelete.String
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (p *Adapter) HasUniqueConstraint(ctx context.Context, tableName, columnName string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM pg_index i
			JOIN pg_class t ON t.oid = i.indrelid
			JOIN pg_namespace ns ON t.relnamespace = ns.oid
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = i.indkey[0]
			WHERE t.relname = $1
			  AND a.attname = $2
			  AND ns.nspname = current_schema()
			  AND i.indisunique
			  AND NOT i.indisprimary
			  AND i.indnatts = 1
			  AND i.indpred IS NULL
		)
	`, tableName, columnName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unique constraint on %s.%s: %w", tableName, columnName, err)
	}
	return exists, nil
}
