package storage

import (
	"context"
	"time"

	"Scribe/internal/models"
)

// RoomMessages возвращает весь журнал комнаты по возрастанию offset
func (s *Storage) RoomMessages(ctx context.Context, room string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT "offset", roomname, username, content, "timestamp"
		FROM messages
		WHERE roomname = ?
		ORDER BY "offset"`), room)
	if err != nil {
		return nil, wrap("room messages", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var millis int64
		if err := rows.Scan(&m.Offset, &m.RoomName, &m.Username, &m.Content, &millis); err != nil {
			return nil, wrap("room messages", err)
		}
		m.Timestamp = time.UnixMilli(millis).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("room messages", err)
	}
	return messages, nil
}

// InsertMessage сохраняет сообщение. Занятый (offset, roomname) дает KindAlreadyExists.
func (s *Storage) InsertMessage(ctx context.Context, msg models.Message) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO messages ("offset", roomname, username, content, "timestamp")
		VALUES (?, ?, ?, ?, ?)`),
		msg.Offset, msg.RoomName, msg.Username, msg.Content, msg.Timestamp.UnixMilli())
	if err != nil {
		storageLogger.Error("Failed to save message",
			"room", msg.RoomName,
			"offset", msg.Offset,
			"username", msg.Username,
			"error", err)
		return wrap("insert message", err)
	}
	return nil
}
