package mysql

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/database/common"
)

func (m *Adapter) TruncateTable(ctx context.Context, tableName string) error {
	if err := common.ValidateIdentifiers(tableName, nil); err != nil {
		return err
	}
	// TRUNCATE refuses tables referenced by foreign keys unless checks are off
	// for the session, so run it on one pinned connection.
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}
	defer conn.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 1")

	_, err = conn.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", quote(tableName)))
	return err
}
