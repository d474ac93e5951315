package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	// регистрируют драйверы "postgres" и "sqlite" для sql.Open ниже
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var storageLogger = slog.With("component", "storage")

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Таблицы одинаковы для обоих диалектов.
// У messages.username нет внешнего ключа: история переживает удаление пользователя.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS joined_rooms (
		username TEXT NOT NULL REFERENCES users (name),
		roomname TEXT NOT NULL REFERENCES rooms (name),
		PRIMARY KEY (username, roomname)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		"offset"    BIGINT NOT NULL,
		roomname    TEXT   NOT NULL REFERENCES rooms (name),
		username    TEXT   NOT NULL,
		content     TEXT   NOT NULL,
		"timestamp" BIGINT NOT NULL,
		PRIMARY KEY ("offset", roomname)
	)`,
}

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// sqliteDSN дописывает pragma к пути, сохраняя параметры, которые уже есть в connStr
func sqliteDSN(connStr string) string {
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
		if strings.HasSuffix(connStr, "?") || strings.HasSuffix(connStr, "&") {
			sep = ""
		}
	}
	return connStr + sep + sqlitePragmas
}

// Storage - долговременное хранилище пользователей, комнат, членства и сообщений
type Storage struct {
	db     *sql.DB
	driver string
}

// NewStorage открывает базу, проверяет соединение и создает таблицы.
// driver - "postgres" или "sqlite"; для sqlite connStr - путь к файлу.
func NewStorage(driver, connStr string) (*Storage, error) {
	if strings.TrimSpace(connStr) == "" {
		return nil, fmt.Errorf("storage connection string is required")
	}

	var dsn string
	switch driver {
	case DriverPostgres:
		dsn = connStr
	case DriverSQLite:
		dsn = sqliteDSN(connStr)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// один писатель на файл, иначе SQLITE_BUSY под нагрузкой
		db.SetMaxOpenConns(1)
	}

	s := &Storage{db: db, driver: driver}
	if err := s.Ping(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	storageLogger.Info("Storage opened", "driver", driver)
	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Ping проверяет доступность базы
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// rebind переписывает плейсхолдеры "?" в "$n" для Postgres
func (s *Storage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx выполняет fn в одной транзакции
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier - общее у *sql.DB и *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Storage) queryNames(ctx context.Context, q querier, op, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap(op, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return names, nil
}

// execOne выполняет DELETE и возвращает KindNotFound, если строка не найдена
func (s *Storage) execOne(ctx context.Context, tx *sql.Tx, op, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return notFound(op)
	}
	return nil
}
