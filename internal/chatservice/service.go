package chatservice

import (
	"context"
	"log/slog"
	"sync"

	"Scribe/internal/apperror"
	"Scribe/internal/cache"
	"Scribe/internal/models"
	"Scribe/internal/storage"
)

var serviceLogger = slog.With("component", "chatservice")

// Store - операции хранилища, которые нужны сервису
type Store interface {
	CreateUser(ctx context.Context, name string, rooms ...string) error
	DeleteUser(ctx context.Context, name string) ([]string, error)
	CreateRoom(ctx context.Context, name string) error
	DeleteRoom(ctx context.Context, name string) error
	Join(ctx context.Context, user, room string) error
	Leave(ctx context.Context, user, room string) error
	InsertMessage(ctx context.Context, msg models.Message) error
}

// ChatService - единственная точка записи в хранилище и кэш.
// Любая мутация пишет сначала в хранилище, потом в кэш; чтение идет только из кэша.
//
// Блокировки:
//   - structure: создание/удаление пользователей и комнат берут ее эксклюзивно,
//     join/leave/send - на чтение;
//   - rooms: мьютекс на комнату, держится на всем пути хранилище -> кэш.
type ChatService struct {
	store       Store
	cache       *cache.Store
	defaultRoom string

	structure sync.RWMutex
	rooms     *roomLocks
}

// NewChatService создает сервис поверх уже загруженного кэша.
// defaultRoom - комната, в которую попадает каждый новый пользователь ("" - никакая).
func NewChatService(store Store, c *cache.Store, defaultRoom string) *ChatService {
	serviceLogger.Info("Creating new ChatService instance", "default_room", defaultRoom)
	return &ChatService{
		store:       store,
		cache:       c,
		defaultRoom: defaultRoom,
		rooms:       newRoomLocks(),
	}
}

// storageError переводит ошибку хранилища в ошибку для клиента.
// Дубликат и отсутствие строки сохраняют смысл, остальное - Internal.
func storageError(err error, format string, args ...any) *apperror.Error {
	switch storage.KindOf(err) {
	case storage.KindAlreadyExists:
		return apperror.Wrap(apperror.AlreadyExists, err, format, args...)
	case storage.KindNotFound:
		return apperror.Wrap(apperror.NotFound, err, format, args...)
	default:
		return apperror.Wrap(apperror.Internal, err, format, args...)
	}
}
