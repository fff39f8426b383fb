package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/database/common"
)

func (s *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (s *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Scan(&count)
	return count > 0, err
}

// GetColumns reads PRAGMA table_info. PRAGMA takes no bind parameters, so the
// table name is validated before interpolation.
func (s *Adapter) GetColumns(ctx context.Context, tableName string) ([]catalog.Column, error) {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []catalog.Column
	pkCount := 0
	for rows.Next() {
		var cid, notNull, pk int
		var column catalog.Column
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &column.Name, &column.RawType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}

		column.Type = catalog.ParseColumnType(column.RawType)
		column.MaxLength = catalog.ParseMaxLength(column.RawType)
		column.Nullable = notNull == 0 && pk == 0
		column.PrimaryKey = pk > 0
		column.HasDefault = defaultValue.Valid
		if pk > 0 {
			pkCount++
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	uniqueColumns, err := s.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}

	for i := range columns {
		col := &columns[i]
		col.Unique = uniqueColumns[col.Name] || (col.PrimaryKey && pkCount == 1)
		// A single INTEGER PRIMARY KEY aliases the rowid.
		col.AutoIncrement = col.PrimaryKey && pkCount == 1 && strings.EqualFold(col.RawType, "INTEGER")
		if col.AutoIncrement {
			col.HasDefault = true
		}
	}
	return columns, nil
}

func (s *Adapter) GetPrimaryKey(ctx context.Context, tableName string) (string, error) {
	columns, err := s.GetColumns(ctx, tableName)
	if err != nil {
		return "", err
	}
	for _, col := range columns {
		if col.PrimaryKey {
			return col.Name, nil
		}
	}
	return "", nil
}

func (s *Adapter) GetForeignKeys(ctx context.Context, tableName string) ([]catalog.ForeignKeyEdge, error) {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quote(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []catalog.ForeignKeyEdge
	for rows.Next() {
		var id, seq int
		var table, from, onUpdate, onDelete, match string
		var to sql.NullString

		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		edges = append(edges, catalog.ForeignKeyEdge{
			Column:       from,
			TargetTable:  table,
			TargetColumn: to.String,
			OnUpdate:     onUpdate,
			OnDelete:     onDelete,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// REFERENCES parent without a column list points at the parent's primary key.
	for i := range edges {
		if edges[i].TargetColumn != "" {
			continue
		}
		pk, err := s.GetPrimaryKey(ctx, edges[i].TargetTable)
		if err != nil {
			return nil, err
		}
		edges[i].TargetColumn = pk
	}
	return edges, nil
}

func (s *Adapter) HasUniqueConstraint(ctx context.Context, tableName, columnName string) (bool, error) {
	columns, err := s.GetColumns(ctx, tableName)
	if err != nil {
		return false, err
	}
	for _, col := range columns {
		if col.Name == columnName {
			return col.Unique && !col.PrimaryKey, nil
		}
	}
	return false, nil
}

// uniqueColumns fetches every single-column unique index of a table in one
// pass over PRAGMA index_list.
func (s *Adapter) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quote(tableName)))
	if err != nil {
		return nil, err
	}

	var uniqueIndexes []string
	for rows.Next() {
		var seq, unique, partial int
		var indexName, origin string

		if err := rows.Scan(&seq, &indexName, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		if unique == 1 && partial == 0 {
			uniqueIndexes = append(uniqueIndexes, indexName)
		}
	}
	rows.Close()

	result := make(map[string]bool)
	for _, indexName := range uniqueIndexes {
		columns, err := s.indexColumns(ctx, indexName)
		if err != nil {
			return nil, err
		}
		if len(columns) == 1 {
			result[columns[0]] = true
		}
	}
	return result, nil
}

func (s *Adapter) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quote(indexName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		columns = append(columns, name.String)
	}
	return columns, rows.Err()
}
