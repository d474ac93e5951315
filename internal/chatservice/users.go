package chatservice

import (
	"context"

	"Scribe/internal/apperror"
)

// Users возвращает всех известных пользователей
func (s *ChatService) Users() []string {
	return s.cache.Users()
}

// CreateUser создает пользователя и добавляет его в комнату по умолчанию, если она есть.
// Возвращает комнаты нового пользователя.
func (s *ChatService) CreateUser(ctx context.Context, name string) ([]string, error) {
	s.structure.Lock()
	defer s.structure.Unlock()

	if s.cache.HasUser(name) {
		return nil, apperror.New(apperror.AlreadyExists, "user %q already exists", name)
	}

	var rooms []string
	if s.defaultRoom != "" && s.cache.HasRoom(s.defaultRoom) {
		rooms = append(rooms, s.defaultRoom)
	}

	if err := s.store.CreateUser(ctx, name, rooms...); err != nil {
		return nil, storageError(err, "could not create user %q", name)
	}
	s.cache.AddUser(name, rooms...)

	serviceLogger.Info("User created", "user", name, "rooms", rooms)
	return s.cache.JoinedRooms(name), nil
}

// DeleteUser удаляет пользователя и все его членство.
// Хранилище делает это одной транзакцией, поэтому частичного состояния нет.
func (s *ChatService) DeleteUser(ctx context.Context, name string) error {
	s.structure.Lock()
	defer s.structure.Unlock()

	if !s.cache.HasUser(name) {
		return apperror.New(apperror.NotFound, "user %q not found", name)
	}

	rooms, err := s.store.DeleteUser(ctx, name)
	if err != nil {
		return storageError(err, "could not delete user %q", name)
	}
	s.cache.RemoveUser(name)

	serviceLogger.Info("User deleted", "user", name, "left_rooms", rooms)
	return nil
}
