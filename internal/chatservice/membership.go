package chatservice

import (
	"context"

	"Scribe/internal/apperror"
)

// Join добавляет user в room и возвращает обновленный список комнат пользователя.
// Повторный join уже состоящего в комнате пользователя ничего не пишет.
func (s *ChatService) Join(ctx context.Context, user, room string) ([]string, error) {
	s.structure.RLock()
	defer s.structure.RUnlock()

	if !s.cache.HasUser(user) {
		return nil, apperror.New(apperror.NotFound, "user %q not found", user)
	}
	if !s.cache.HasRoom(room) {
		return nil, apperror.New(apperror.NotFound, "room %q not found", room)
	}

	unlock := s.rooms.lock(room)
	defer unlock()

	if s.cache.IsMember(user, room) {
		return s.cache.JoinedRooms(user), nil
	}

	if err := s.store.Join(ctx, user, room); err != nil {
		return nil, apperror.Wrap(apperror.Internal, err, "could not join room %q", room)
	}
	s.cache.AddMember(user, room)

	serviceLogger.Info("User joined room", "user", user, "room", room)
	return s.cache.JoinedRooms(user), nil
}

// Leave убирает user из room. Не участник - NotFound.
func (s *ChatService) Leave(ctx context.Context, user, room string) ([]string, error) {
	s.structure.RLock()
	defer s.structure.RUnlock()

	if !s.cache.HasUser(user) {
		return nil, apperror.New(apperror.NotFound, "user %q not found", user)
	}
	if !s.cache.HasRoom(room) {
		return nil, apperror.New(apperror.NotFound, "room %q not found", room)
	}

	unlock := s.rooms.lock(room)
	defer unlock()

	if !s.cache.IsMember(user, room) {
		return nil, apperror.New(apperror.NotFound, "user %q is not a member of room %q", user, room)
	}

	if err := s.store.Leave(ctx, user, room); err != nil {
		return nil, apperror.Wrap(apperror.Internal, err, "could not leave room %q", room)
	}
	s.cache.RemoveMember(user, room)

	serviceLogger.Info("User left room", "user", user, "room", room)
	return s.cache.JoinedRooms(user), nil
}

// JoinedRooms возвращает комнаты пользователя
func (s *ChatService) JoinedRooms(user string) ([]string, error) {
	if !s.cache.HasUser(user) {
		return nil, apperror.New(apperror.NotFound, "user %q not found", user)
	}
	return s.cache.JoinedRooms(user), nil
}

// Memberships возвращает снимок членства всех комнат
func (s *ChatService) Memberships() map[string][]string {
	return s.cache.Memberships()
}
