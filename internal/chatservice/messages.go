package chatservice

import (
	"context"
	"math"
	"time"

	"Scribe/internal/apperror"
	"Scribe/internal/models"
)

// SendInput - уже провалидированный запрос на отправку
type SendInput struct {
	Room      string
	Username  string
	Content   string
	Timestamp time.Time
}

// Хранилище держит время в миллисекундах int64, за этими границами UnixMilli переполняется
var (
	minTimestamp = time.UnixMilli(math.MinInt64)
	maxTimestamp = time.UnixMilli(math.MaxInt64)
)

// ValidTimestamp сообщает, переживет ли t запись в хранилище без искажений
func ValidTimestamp(t time.Time) bool {
	return !t.Before(minTimestamp) && !t.After(maxTimestamp)
}

// Send назначает сообщению следующий offset комнаты и сохраняет его.
// Счетчик сдвигается только после успешной записи в хранилище,
// поэтому неудачная отправка не оставляет дыр в нумерации.
func (s *ChatService) Send(ctx context.Context, in SendInput) (models.Message, error) {
	if !ValidTimestamp(in.Timestamp) {
		return models.Message{}, apperror.New(apperror.Unprocessable, "timestamp %d is out of range", in.Timestamp.Unix())
	}

	s.structure.RLock()
	defer s.structure.RUnlock()

	if !s.cache.HasRoom(in.Room) {
		return models.Message{}, apperror.New(apperror.NotFound, "room %q not found", in.Room)
	}
	if !s.cache.HasUser(in.Username) {
		return models.Message{}, apperror.New(apperror.NotFound, "user %q not found", in.Username)
	}

	unlock := s.rooms.lock(in.Room)
	defer unlock()

	if !s.cache.IsMember(in.Username, in.Room) {
		return models.Message{}, apperror.New(apperror.Unauthorized, "user %q is not a member of room %q", in.Username, in.Room)
	}

	offset, _ := s.cache.NextOffset(in.Room)
	msg := models.Message{
		Offset:    offset,
		RoomName:  in.Room,
		Username:  in.Username,
		Content:   in.Content,
		// в кэше то же время, что вернет хранилище после перезапуска
		Timestamp: in.Timestamp.Truncate(time.Millisecond).UTC(),
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return models.Message{}, apperror.Wrap(apperror.Internal, err, "could not store message in room %q", in.Room)
	}
	s.cache.AppendMessage(msg)

	serviceLogger.Info("Message saved successfully",
		"room", msg.RoomName,
		"offset", msg.Offset,
		"username", msg.Username,
		"content_length", len(msg.Content))
	return msg, nil
}

// Messages возвращает журнал комнаты
func (s *ChatService) Messages(room string) ([]models.Message, error) {
	msgs, ok := s.cache.Messages(room)
	if !ok {
		return nil, apperror.New(apperror.NotFound, "room %q not found", room)
	}
	return msgs, nil
}
