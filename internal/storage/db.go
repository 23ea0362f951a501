package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open. They double as database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps a database/sql connection to one of the supported SQL engines.
type DB struct {
	conn   *sql.DB
	driver string
	path   string // sqlite file path, empty for server databases
}

// OpenSQLite opens (or creates) the SQLite file at dbPath.
func OpenSQLite(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	db.path = dbPath
	return db, nil
}

// Open connects to postgres or mysql using dsn, or to sqlite treating dsn
// as a file path.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres, DriverMySQL:
		return open(driver, dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
}

func open(driver, dsn string) (*DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(5)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(10 * time.Minute)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Driver() string {
	return db.driver
}

// Path is the sqlite file backing db, or "" for server databases.
func (db *DB) Path() string {
	return db.path
}

// Ping verifies connectivity.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) migrate() error {
	for _, m := range migrations(db.driver) {
		if _, err := db.conn.Exec(m); err != nil {
			// MySQL has no CREATE INDEX IF NOT EXISTS; a rerun reports a duplicate
			if db.driver == DriverMySQL && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			head := m
			if len(head) > 40 {
				head = head[:40]
			}
			return fmt.Errorf("migration failed: %s: %w", head, err)
		}
	}
	return nil
}

func migrations(driver string) []string {
	createIndex := "CREATE INDEX IF NOT EXISTS"
	if driver == DriverMySQL {
		createIndex = "CREATE INDEX"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS board_objects (
			board_id VARCHAR(64) NOT NULL,
			id VARCHAR(64) NOT NULL,
			type VARCHAR(16) NOT NULL,
			x DOUBLE PRECISION NOT NULL DEFAULT 0,
			y DOUBLE PRECISION NOT NULL DEFAULT 0,
			width DOUBLE PRECISION NOT NULL DEFAULT 0,
			height DOUBLE PRECISION NOT NULL DEFAULT 0,
			rotation DOUBLE PRECISION NOT NULL DEFAULT 0,
			parent_id VARCHAR(64) NOT NULL DEFAULT '',
			created_by VARCHAR(64) NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL DEFAULT 0,
			last_modified_by VARCHAR(64) NOT NULL DEFAULT '',
			from_id VARCHAR(64) NOT NULL DEFAULT '',
			to_id VARCHAR(64) NOT NULL DEFAULT '',
			data_json TEXT NOT NULL,
			PRIMARY KEY (board_id, id)
		)`,
		createIndex + ` idx_board_objects_order ON board_objects(board_id, updated_at)`,
		// One row per (board, user): both stacks serialized together
		`CREATE TABLE IF NOT EXISTS board_history (
			board_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			history_json TEXT NOT NULL,
			saved_at BIGINT NOT NULL,
			PRIMARY KEY (board_id, user_id)
		)`,
		createIndex + ` idx_board_history_saved ON board_history(saved_at)`,
	}
}
