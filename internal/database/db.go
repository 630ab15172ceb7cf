// Package database opens the MySQL pool and owns the schema of the
// layout tables.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSN builds the driver DSN.  parseTime maps DATETIME to time.Time and
// loc=UTC keeps timestamps consistent across hosts.
func DSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// schema is applied in order by EnsureSchema.  Every statement is
// idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS floor_layouts (
		floor_id    VARCHAR(64)     NOT NULL,
		draft_json  JSON            NULL,
		active_json JSON            NULL,
		version     BIGINT UNSIGNED NOT NULL DEFAULT 1,
		updated_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (floor_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS table_statuses (
		floor_id   VARCHAR(64) NOT NULL,
		table_id   VARCHAR(64) NOT NULL,
		status     ENUM('available','occupied','reserved','cleaning') NOT NULL DEFAULT 'available',
		updated_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (floor_id, table_id),
		CONSTRAINT fk_table_statuses_floor FOREIGN KEY (floor_id)
			REFERENCES floor_layouts (floor_id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the layout tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
