package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	_ "github.com/lib/pq"              // registers "postgres" driver for database/sql
	_ "modernc.org/sqlite"             // registers "sqlite" driver for database/sql

	"github.com/pkordes/modelio/internal/schema"
)

// Drivers lists the accepted values of DB_DRIVER.
var Drivers = []string{"pgx", "postgres", "sqlite", "mysql"}

// sqlitePragmas is appended to sqlite DSNs that carry no query string.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"

// Open connects to the database and returns a RecordRepo together with a
// function that releases the underlying pool. The "pgx" driver uses a native
// pgxpool; every other driver goes through database/sql.
func Open(ctx context.Context, driver, dsn string, reg *schema.Registry) (RecordRepo, func(), error) {
	if driver == "pgx" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("repo.Open: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("repo.Open: ping: %w", err)
		}
		return NewPGRecordRepo(pool, reg), pool.Close, nil
	}

	db, d, err := OpenSQL(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("repo.Open: ping: %w", err)
	}
	return NewSQLRecordRepo(db, d, reg), func() { db.Close() }, nil
}

// OpenSQL opens a database/sql handle for driver and reports its dialect.
// "pgx" maps to the pgx stdlib driver so migrations work against the same DSN.
func OpenSQL(driver, dsn string) (*sql.DB, Dialect, error) {
	var (
		sqlDriver = driver
		d         Dialect
	)
	switch driver {
	case "pgx", "postgres":
		d = Postgres
	case "sqlite":
		d = SQLite
		dsn = sqliteDSN(dsn)
	case "mysql":
		d = MySQL
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, Dialect{}, fmt.Errorf("repo.OpenSQL: %w", err)
		}
	default:
		return nil, Dialect{}, fmt.Errorf("repo.OpenSQL: unsupported driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("repo.OpenSQL: %w", err)
	}
	if d.Name() == SQLite.Name() && strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: opens a separate, empty database.
		db.SetMaxOpenConns(1)
	}
	return db, d, nil
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?" + sqlitePragmas
}

// mysqlDSN forces the options the repository relies on: DATETIME values scan
// into time.Time and UPDATE reports matched rows.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
