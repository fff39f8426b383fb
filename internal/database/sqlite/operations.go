package sqlite

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/database/common"
)

// TruncateTable deletes every row and resets the AUTOINCREMENT counter.
func (s *Adapter) TruncateTable(ctx context.Context, tableName string) error {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", quote(tableName))); err != nil {
		return err
	}

	var hasSequence int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").Scan(&hasSequence); err != nil {
		return err
	}
	if hasSequence > 0 {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = ?", tableName); err != nil {
			return err
		}
	}
	return nil
}
