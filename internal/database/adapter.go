package database

import (
	"context"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

// DatabaseAdapter is a connectable catalog. The population engine only sees the
// embedded catalog.Catalog; the CLI and export use the rest.
type DatabaseAdapter interface {
	catalog.Catalog

	Connect(ctx context.Context, url string) error
	Close() error

	// GetTableData reads up to limit rows; limit <= 0 reads the whole table.
	GetTableData(ctx context.Context, tableName string, limit int) ([]catalog.Record, error)
	TruncateTable(ctx context.Context, tableName string) error
}
