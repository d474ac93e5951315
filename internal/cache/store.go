// Package cache держит в памяти копию хранилища: пользователей, членство в комнатах
// и журналы сообщений. После загрузки кэш никогда не читает хранилище сам, его
// обновляют те, кто пишет в хранилище.
package cache

import (
	"sort"
	"sync"

	"Scribe/internal/models"
)

type room struct {
	members    map[string]struct{}
	messages   []models.Message
	nextOffset int64
}

func newRoom() *room {
	return &room{members: make(map[string]struct{})}
}

// Store - кэш. Каждая мутация - одна критическая секция,
// поэтому читатель видит изменение целиком или не видит вовсе.
type Store struct {
	mu    sync.RWMutex
	users map[string]struct{}
	rooms map[string]*room
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]struct{}),
		rooms: make(map[string]*room),
	}
}

// AddUser добавляет пользователя и его начальное членство
func (s *Store) AddUser(name string, rooms ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[name] = struct{}{}
	for _, roomName := range rooms {
		if r, ok := s.rooms[roomName]; ok {
			r.members[name] = struct{}{}
		}
	}
}

// RemoveUser убирает пользователя из множества пользователей и из всех комнат
func (s *Store) RemoveUser(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, name)
	for _, r := range s.rooms {
		delete(r.members, name)
	}
}

func (s *Store) HasUser(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[name]
	return ok
}

// Users возвращает отсортированный список пользователей
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users)
}

// AddRoom создает пустую комнату со счетчиком 0
func (s *Store) AddRoom(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[name]; !ok {
		s.rooms[name] = newRoom()
	}
}

func (s *Store) RemoveRoom(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, name)
}

func (s *Store) HasRoom(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[name]
	return ok
}

func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) AddMember(user, roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomName]; ok {
		r.members[user] = struct{}{}
	}
}

func (s *Store) RemoveMember(user, roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomName]; ok {
		delete(r.members, user)
	}
}

func (s *Store) IsMember(user, roomName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomName]
	if !ok {
		return false
	}
	_, ok = r.members[user]
	return ok
}

// Members возвращает участников комнаты; ok=false, если комнаты нет
func (s *Store) Members(roomName string) (members []string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomName]
	if !ok {
		return nil, false
	}
	return sortedKeys(r.members), true
}

// JoinedRooms возвращает отсортированный список комнат пользователя
func (s *Store) JoinedRooms(user string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := []string{}
	for name, r := range s.rooms {
		if _, ok := r.members[user]; ok {
			rooms = append(rooms, name)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// Memberships возвращает снимок: комната -> участники
func (s *Store) Memberships() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.rooms))
	for name, r := range s.rooms {
		out[name] = sortedKeys(r.members)
	}
	return out
}

// NextOffset возвращает offset, который получит следующее сообщение комнаты
func (s *Store) NextOffset(roomName string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomName]
	if !ok {
		return 0, false
	}
	return r.nextOffset, true
}

// AppendMessage дописывает уже сохраненное сообщение и сдвигает счетчик за его offset
func (s *Store) AppendMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[msg.RoomName]
	if !ok {
		return
	}
	r.messages = append(r.messages, msg)
	if msg.Offset >= r.nextOffset {
		r.nextOffset = msg.Offset + 1
	}
}

// Messages возвращает копию журнала комнаты
func (s *Store) Messages(roomName string) ([]models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomName]
	if !ok {
		return nil, false
	}
	out := make([]models.Message, len(r.messages))
	copy(out, r.messages)
	return out, true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
