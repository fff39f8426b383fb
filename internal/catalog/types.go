package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnType is the generic type vocabulary every dialect is folded into.
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeInteger
	TypeBoolean
	TypeTimestamp
	TypeDate
	TypeTime
	TypeVarText
	TypeNumeric
	TypeUUID
	TypeJSON
)

var columnTypeNames = map[ColumnType]string{
	TypeUnknown:   "unknown",
	TypeInteger:   "integer",
	TypeBoolean:   "boolean",
	TypeTimestamp: "timestamp",
	TypeDate:      "date",
	TypeTime:      "time",
	TypeVarText:   "text",
	TypeNumeric:   "numeric",
	TypeUUID:      "uuid",
	TypeJSON:      "json",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsTextual reports whether values of this type are carried as strings.
func (t ColumnType) IsTextual() bool {
	return t == TypeVarText || t == TypeUnknown
}

var (
	lengthRegex  = regexp.MustCompile(`\(\s*(\d+)`)
	integerRegex = regexp.MustCompile(`\b(tiny|small|medium|big)?int(eger|[248])?\b|serial`)
)

// ParseColumnType folds a raw dialect type name (udt_name, DATA_TYPE, declared
// sqlite type) into a ColumnType. Order matters: "timestamp" must be checked
// before "time", "tinyint(1)" before "int".
func ParseColumnType(raw string) ColumnType {
	t := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(t, "("); idx > 0 && !strings.HasPrefix(t, "tinyint(1)") {
		t = strings.TrimSpace(t[:idx])
	}

	switch {
	case t == "":
		return TypeUnknown
	case t == "bool" || t == "boolean" || strings.HasPrefix(t, "tinyint(1)") || t == "bit":
		return TypeBoolean
	case strings.Contains(t, "uuid") || t == "uniqueidentifier":
		return TypeUUID
	case strings.Contains(t, "json"):
		return TypeJSON
	case strings.Contains(t, "timestamp") || strings.Contains(t, "datetime"):
		return TypeTimestamp
	case t == "date":
		return TypeDate
	case strings.HasPrefix(t, "time") || strings.HasPrefix(t, "interval"):
		return TypeTime
	case integerRegex.MatchString(t):
		return TypeInteger
	case strings.Contains(t, "numeric") || strings.Contains(t, "decimal") ||
		strings.Contains(t, "real") || strings.Contains(t, "double") ||
		strings.Contains(t, "float") || t == "money":
		return TypeNumeric
	case strings.Contains(t, "char") || strings.Contains(t, "text") ||
		strings.Contains(t, "clob") || t == "string" || t == "citext":
		return TypeVarText
	default:
		return TypeUnknown
	}
}

// ParseMaxLength extracts a declared length such as VARCHAR(40). Zero means unbounded.
func ParseMaxLength(raw string) int {
	if ParseColumnType(raw) != TypeVarText {
		return 0
	}
	m := lengthRegex.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Column is immutable once fetched for a population run.
type Column struct {
	Name          string
	RawType       string
	Type          ColumnType
	Nullable      bool
	MaxLength     int
	HasDefault    bool
	AutoIncrement bool
	PrimaryKey    bool
	Unique        bool
}

type ForeignKeyEdge struct {
	Column       string
	TargetTable  string
	TargetColumn string
	OnUpdate     string
	OnDelete     string
}

type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  string
	ForeignKeys []ForeignKeyEdge
}

// Column returns the named column, if present.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ForeignKey returns the edge whose source is the named column.
func (t *Table) ForeignKey(column string) (ForeignKeyEdge, bool) {
	for _, fk := range t.ForeignKeys {
		if fk.Column == column {
			return fk, true
		}
	}
	return ForeignKeyEdge{}, false
}

// Record maps column name to generated value.
type Record map[string]interface{}

// Values returns the record's values in the given column order.
func (r Record) Values(columns []string) []interface{} {
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		values[i] = r[col]
	}
	return values
}
