package storage

import (
	"context"
	"database/sql"
)

func (s *Storage) Rooms(ctx context.Context) ([]string, error) {
	return s.queryNames(ctx, s.db, "list rooms", `SELECT name FROM rooms ORDER BY name`)
}

func (s *Storage) CreateRoom(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO rooms (name) VALUES (?)`), name); err != nil {
		storageLogger.Error("Failed to create room", "room", name, "error", err)
		return wrap("create room", err)
	}
	return nil
}

// EnsureRooms создает комнаты, которых еще нет
func (s *Storage) EnsureRooms(ctx context.Context, names ...string) error {
	for _, name := range names {
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO rooms (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), name)
		if err != nil {
			return wrap("ensure room "+name, err)
		}
	}
	return nil
}

// DeleteRoom удаляет комнату, ее членство и ее сообщения в одной транзакции.
// Пересозданная комната начинает журнал заново с offset 0.
func (s *Storage) DeleteRoom(ctx context.Context, name string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM joined_rooms WHERE roomname = ?`), name); err != nil {
			return wrap("delete room: members", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM messages WHERE roomname = ?`), name); err != nil {
			return wrap("delete room: messages", err)
		}
		return s.execOne(ctx, tx, "delete room", `DELETE FROM rooms WHERE name = ?`, name)
	})
	if err != nil {
		storageLogger.Error("Failed to delete room", "room", name, "error", err)
		return wrap("delete room", err)
	}
	return nil
}

// RoomMembers возвращает участников комнаты
func (s *Storage) RoomMembers(ctx context.Context, room string) ([]string, error) {
	return s.queryNames(ctx, s.db, "room members",
		`SELECT username FROM joined_rooms WHERE roomname = ? ORDER BY username`, room)
}

// Join добавляет пару (user, room) в joined_rooms
func (s *Storage) Join(ctx context.Context, user, room string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO joined_rooms (username, roomname) VALUES (?, ?)`), user, room)
	if err != nil {
		storageLogger.Error("Failed to join room", "user", user, "room", room, "error", err)
		return wrap("join room", err)
	}
	return nil
}

// Leave удаляет пару (user, room). KindNotFound, если пары не было.
func (s *Storage) Leave(ctx context.Context, user, room string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.execOne(ctx, tx, "leave room", `DELETE FROM joined_rooms WHERE username = ? AND roomname = ?`, user, room)
	})
	if err != nil {
		storageLogger.Error("Failed to leave room", "user", user, "room", room, "error", err)
		return wrap("leave room", err)
	}
	return nil
}
