package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/config"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"
)

const (
	FormatJSON   = "json"
	FormatCSV    = "csv"
	FormatSQL    = "sql"
	FormatSQLite = "sqlite"

	fetchConcurrency = 4
	timestampLayout  = "2006-01-02_15-04-05"
)

// TableReader is the read side of a database adapter.
type TableReader interface {
	ListTables(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string, limit int) ([]catalog.Record, error)
}

type Snapshot struct {
	Timestamp string                      `json:"timestamp"`
	Version   string                      `json:"version"`
	Comment   string                      `json:"comment"`
	Tables    map[string][]catalog.Record `json:"tables"`
}

// PerformExport dumps tables (all of them when none are named) into
// exportPath. limit caps the rows read per table; <= 0 reads everything.
func PerformExport(ctx context.Context, reader TableReader, exportPath, format string, tables []string, limit int) (string, error) {
	if len(tables) == 0 {
		all, err := reader.ListTables(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get table names: %w", err)
		}
		tables = all
	}

	if len(tables) == 0 {
		log.Println("No tables found in database")
		return "", nil
	}

	snapshot := Snapshot{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Version:   "1.0",
		Tables:    make(map[string][]catalog.Record, len(tables)),
		Comment:   "Database export",
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, name := range tables {
		g.Go(func() error {
			data, err := reader.GetTableData(gctx, name, limit)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Printf("Warning: Failed to get data for table %s: %v", name, err)
				return nil
			}
			mu.Lock()
			snapshot.Tables[name] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	switch format {
	case FormatCSV:
		return exportToCSV(snapshot, exportPath)
	case FormatSQL:
		return exportToSQL(snapshot, exportPath)
	case FormatSQLite:
		return exportToSQLite(snapshot, exportPath)
	case FormatJSON, "":
		return exportToJSON(snapshot, exportPath)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteRunConfig saves a population run so it can be replayed with
// populate --from.
func WriteRunConfig(exportPath string, rc *config.RunConfig) (string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	now := time.Now()
	if rc.CreatedAt == "" {
		rc.CreatedAt = now.UTC().Format(time.RFC3339)
	}

	filePath := filepath.Join(exportPath, fmt.Sprintf("run_%s_%s.json", rc.Table, now.Format(timestampLayout)))
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filePath, nil
}

// WriteRecords writes generated records for one table, in column order.
func WriteRecords(exportPath, table string, columns []string, records []catalog.Record, format string) (string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	stamp := time.Now().Format(timestampLayout)

	switch format {
	case FormatCSV:
		filePath := filepath.Join(exportPath, fmt.Sprintf("%s_%s.csv", table, stamp))
		return filePath, writeCSVFile(filePath, columns, records)
	case FormatSQL:
		filePath := filepath.Join(exportPath, fmt.Sprintf("%s_%s.sql", table, stamp))
		var b strings.Builder
		writeInserts(&b, table, columns, records)
		return filePath, os.WriteFile(filePath, []byte(b.String()), 0644)
	case FormatJSON, "":
		filePath := filepath.Join(exportPath, fmt.Sprintf("%s_%s.json", table, stamp))
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal records: %w", err)
		}
		return filePath, os.WriteFile(filePath, data, 0644)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportToJSON(data Snapshot, exportPath string) (string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filePath := filepath.Join(exportPath, fmt.Sprintf("export_%s.json", time.Now().Format(timestampLayout)))

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

func exportToCSV(data Snapshot, exportPath string) (string, error) {
	dirPath := filepath.Join(exportPath, fmt.Sprintf("export_%s_csv", time.Now().Format(timestampLayout)))
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create CSV directory: %w", err)
	}

	for tableName, rows := range data.Tables {
		if len(rows) == 0 {
			continue
		}
		filePath := filepath.Join(dirPath, fmt.Sprintf("%s.csv", tableName))
		if err := writeCSVFile(filePath, sortedColumns(rows[0]), rows); err != nil {
			return "", fmt.Errorf("failed to write CSV file for %s: %w", tableName, err)
		}
	}

	return dirPath, nil
}

func exportToSQL(data Snapshot, exportPath string) (string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	filePath := filepath.Join(exportPath, fmt.Sprintf("export_%s.sql", time.Now().Format(timestampLayout)))

	names := make([]string, 0, len(data.Tables))
	for name := range data.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "-- %s at %s\n", data.Comment, data.Timestamp)
	for _, name := range names {
		rows := data.Tables[name]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n-- %s (%d rows)\n", name, len(rows))
		writeInserts(&b, name, sortedColumns(rows[0]), rows)
	}

	if err := os.WriteFile(filePath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filePath, nil
}

func exportToSQLite(data Snapshot, exportPath string) (string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filePath := filepath.Join(exportPath, fmt.Sprintf("export_%s.db", time.Now().Format(timestampLayout)))

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create SQLite database: %w", err)
	}
	defer db.Close()

	for tableName, rows := range data.Tables {
		if len(rows) == 0 {
			continue
		}
		columns := sortedColumns(rows[0])

		createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), buildColumnDefs(columns))
		if _, err := db.Exec(createSQL); err != nil {
			return "", fmt.Errorf("failed to create table %s: %w", tableName, err)
		}

		insertSQL := buildInsertSQL(tableName, columns)
		for _, row := range rows {
			if _, err := db.Exec(insertSQL, row.Values(columns)...); err != nil {
				log.Printf("Warning: Failed to insert row into %s: %v", tableName, err)
			}
		}
	}

	return filePath, nil
}

func writeCSVFile(filePath string, columns []string, rows []catalog.Record) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = csvValue(row[col])
		}
		if err := writer.Write(values); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeInserts(b *strings.Builder, table string, columns []string, rows []catalog.Record) {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES (", quoteIdent(table), strings.Join(quoted, ", "))

	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = formatValue(row[col])
		}
		b.WriteString(prefix)
		b.WriteString(strings.Join(values, ", "))
		b.WriteString(");\n")
	}
}

func sortedColumns(row catalog.Record) []string {
	columns := make([]string, 0, len(row))
	for key := range row {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

func csvValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatValue renders a literal for an INSERT script.
func formatValue(val interface{}) string {
	if val == nil {
		return "NULL"
	}
	switch v := val.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return fmt.Sprintf("'%s'", v.Format("2006-01-02 15:04:05"))
	default:
		escaped := strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''")
		return fmt.Sprintf("'%s'", escaped)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func buildColumnDefs(columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s TEXT", quoteIdent(col))
	}
	return strings.Join(defs, ", ")
}

func buildInsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}
