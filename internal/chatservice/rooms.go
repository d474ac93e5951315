package chatservice

import (
	"context"

	"Scribe/internal/apperror"
)

func (s *ChatService) Rooms() []string {
	return s.cache.Rooms()
}

func (s *ChatService) CreateRoom(ctx context.Context, name string) error {
	s.structure.Lock()
	defer s.structure.Unlock()

	if s.cache.HasRoom(name) {
		return apperror.New(apperror.AlreadyExists, "room %q already exists", name)
	}
	if err := s.store.CreateRoom(ctx, name); err != nil {
		return storageError(err, "could not create room %q", name)
	}
	s.cache.AddRoom(name)

	serviceLogger.Info("Room created", "room", name)
	return nil
}

// DeleteRoom удаляет комнату вместе с членством и журналом
func (s *ChatService) DeleteRoom(ctx context.Context, name string) error {
	s.structure.Lock()
	defer s.structure.Unlock()

	if !s.cache.HasRoom(name) {
		return apperror.New(apperror.NotFound, "room %q not found", name)
	}
	if err := s.store.DeleteRoom(ctx, name); err != nil {
		return storageError(err, "could not delete room %q", name)
	}
	s.cache.RemoveRoom(name)
	s.rooms.forget(name)

	serviceLogger.Info("Room deleted", "room", name)
	return nil
}
