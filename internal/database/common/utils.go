package common

import (
	"encoding/json"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

// Bind parameter ceilings per dialect. SQLite is kept at the historical
// SQLITE_MAX_VARIABLE_NUMBER so older builds work too.
const (
	MaxParamsPostgres = 65535
	MaxParamsMySQL    = 65535
	MaxParamsSQLite   = 999
)

// ChunkRecords splits records so that no single INSERT exceeds maxParams bind
// parameters.
func ChunkRecords(records []catalog.Record, columns, maxParams int) [][]catalog.Record {
	if len(records) == 0 {
		return nil
	}
	perChunk := len(records)
	if columns > 0 && maxParams > 0 {
		perChunk = maxParams / columns
		if perChunk < 1 {
			perChunk = 1
		}
	}

	chunks := make([][]catalog.Record, 0, len(records)/perChunk+1)
	for start := 0; start < len(records); start += perChunk {
		end := start + perChunk
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// ValidateIdentifiers rejects any table or column name that is not safe to
// interpolate into dynamic SQL.
func ValidateIdentifiers(table string, columns []string) error {
	if !catalog.IsValidIdentifier(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	for _, col := range columns {
		if !catalog.IsValidIdentifier(col) {
			return fmt.Errorf("invalid column name in table %s: %s", table, col)
		}
	}
	return nil
}

// NormalizeValue converts driver values into plain Go values that can be fed
// back into an INSERT and printed.
func NormalizeValue(val interface{}) interface{} {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case []byte:
		if len(v) == 16 && !isPrintable(string(v)) {
			return formatUUID(v)
		}
		str := string(v)
		if isPrintable(str) {
			return str
		}
		return fmt.Sprintf("0x%x", v)
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case float32:
		return float64(v)
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
	return val
}

func isPrintable(str string) bool {
	for _, r := range str {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}
	return true
}

// formatUUID converts a 16-byte slice to UUID string format
func formatUUID(bytes []byte) string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		bytes[0:4],
		bytes[4:6],
		bytes[6:8],
		bytes[8:10],
		bytes[10:16])
}
