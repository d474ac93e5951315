package storage

import (
	"context"
	"database/sql"
)

// Users возвращает имена всех пользователей
func (s *Storage) Users(ctx context.Context) ([]string, error) {
	return s.queryNames(ctx, s.db, "list users", `SELECT name FROM users ORDER BY name`)
}

// CreateUser создает пользователя и сразу добавляет его в rooms.
// Все выполняется в одной транзакции.
func (s *Storage) CreateUser(ctx context.Context, name string, rooms ...string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO users (name) VALUES (?)`), name); err != nil {
			return wrap("create user", err)
		}
		for _, room := range rooms {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO joined_rooms (username, roomname) VALUES (?, ?)`), name, room); err != nil {
				return wrap("create user: join "+room, err)
			}
		}
		return nil
	})
	if err != nil {
		storageLogger.Error("Failed to create user", "user", name, "error", err)
		return wrap("create user", err)
	}
	return nil
}

// DeleteUser удаляет пользователя вместе со всем его членством в одной транзакции.
// Возвращает комнаты, из которых пользователь был удален (по данным базы).
// Сообщения пользователя остаются.
func (s *Storage) DeleteUser(ctx context.Context, name string) ([]string, error) {
	var rooms []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rooms, err = s.queryNames(ctx, tx, "delete user: joined rooms",
			`SELECT roomname FROM joined_rooms WHERE username = ? ORDER BY roomname`, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM joined_rooms WHERE username = ?`), name); err != nil {
			return wrap("delete user: leave rooms", err)
		}
		return s.execOne(ctx, tx, "delete user", `DELETE FROM users WHERE name = ?`, name)
	})
	if err != nil {
		storageLogger.Error("Failed to delete user", "user", name, "error", err)
		return nil, wrap("delete user", err)
	}
	return rooms, nil
}

// JoinedRooms возвращает комнаты пользователя
func (s *Storage) JoinedRooms(ctx context.Context, user string) ([]string, error) {
	return s.queryNames(ctx, s.db, "joined rooms",
		`SELECT roomname FROM joined_rooms WHERE username = ? ORDER BY roomname`, user)
}
