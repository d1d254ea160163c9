package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

type dialect struct {
	name         string
	driverName   string
	returningID  bool
	numbered     bool // $1, $2 placeholders
	singleWriter bool
	schema       []string
	uniqueErr    func(error) bool
	dsnFn        func(string) string
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case "sqlite":
		return sqliteDialect, nil
	case "postgres":
		return postgresDialect, nil
	case "mysql":
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %s", name)
	}
}

func (d dialect) normalizeDSN(dsn string) string {
	if d.dsnFn == nil {
		return dsn
	}
	return d.dsnFn(dsn)
}

// rebind rewrites ? placeholders for dialects that number them
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

func (d dialect) isUnique(err error) bool {
	return err != nil && d.uniqueErr(err)
}

var sqliteDialect = dialect{
	name:         "sqlite",
	driverName:   "sqlite",
	singleWriter: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			filename TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS password_resets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
	},
	uniqueErr: func(err error) bool {
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
	dsnFn: func(dsn string) string {
		if strings.Contains(dsn, "?") {
			return dsn
		}
		return dsn + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	driverName:  "pgx",
	returningID: true,
	numbered:    true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id),
			filename TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS password_resets (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id),
			token TEXT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
	},
	uniqueErr: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == "23505"
	},
}

var mysqlDialect = dialect{
	name:       "mysql",
	driverName: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(191) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			email VARCHAR(191) UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			filename VARCHAR(255) NOT NULL,
			created_at VARCHAR(64) NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS password_resets (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			token VARCHAR(255) NOT NULL,
			expires_at BIGINT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
	},
	uniqueErr: func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == 1062
	},
	dsnFn: func(dsn string) string {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return dsn
		}
		cfg.ParseTime = false
		return cfg.FormatDSN()
	},
}
