package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/flashseed/internal/database/common"
	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

type Adapter struct {
	*common.SQLStore
	db   *sql.DB
	path string
}

func New() *Adapter {
	return &Adapter{}
}

// toDSN strips the sqlite:// scheme and turns on foreign key enforcement,
// which SQLite leaves off per connection by default.
func toDSN(url string) (path, dsn string) {
	dsn = strings.TrimPrefix(url, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "file:")

	path = dsn
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}

	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	} else if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		dsn += "&_foreign_keys=on"
	}
	return path, dsn
}

func (s *Adapter) Connect(ctx context.Context, url string) error {
	path, dsn := toDSN(url)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// One writer at a time; this also keeps :memory: databases on a single
	// connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s.path = path
	s.db = db
	s.SQLStore = &common.SQLStore{
		DB:        db,
		Builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		Quote:     quote,
		MaxParams: common.MaxParamsSQLite,
	}
	return nil
}

func (s *Adapter) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Adapter) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected")
	}
	return s.db.PingContext(ctx)
}

// Exec runs a raw statement. Used to prepare schemas in tests and by the CLI.
func (s *Adapter) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
