package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Kind классифицирует ошибку хранилища
type Kind int

const (
	// KindIO - любая ошибка, которую не удалось классифицировать точнее
	KindIO Kind = iota
	// KindAlreadyExists - нарушение первичного ключа или уникальности
	KindAlreadyExists
	// KindNotFound - целевая строка не существует
	KindNotFound
	// KindConstraint - нарушение внешнего ключа
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already exists"
	case KindNotFound:
		return "not found"
	case KindConstraint:
		return "constraint violation"
	default:
		return "i/o failure"
	}
}

// Error - ошибка операции хранилища с ее классом
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("storage: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает класс ошибки. Ошибки не из этого пакета считаются KindIO.
func KindOf(err error) Kind {
	var storageErr *Error
	if errors.As(err, &storageErr) {
		return storageErr.Kind
	}
	return KindIO
}

func notFound(op string) error {
	return &Error{Op: op, Kind: KindNotFound}
}

// wrap переводит ошибку драйвера в *Error
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var storageErr *Error
	if errors.As(err, &storageErr) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, sql.ErrNoRows) {
		return KindNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return KindAlreadyExists
		case "foreign_key_violation":
			return KindConstraint
		}
		return KindIO
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return KindAlreadyExists
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return KindConstraint
		}
	}
	return KindIO
}
