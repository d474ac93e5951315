package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"Scribe/internal/models"
)

var loaderLogger = slog.With("component", "cache-loader")

// ErrIntegrity - хранилище противоречиво: участник комнаты не найден среди пользователей.
// Сервер с таким кэшем не стартует.
var ErrIntegrity = errors.New("cache integrity violation")

// Source - то, из чего кэш загружается при старте
type Source interface {
	Users(ctx context.Context) ([]string, error)
	Rooms(ctx context.Context) ([]string, error)
	RoomMembers(ctx context.Context, room string) ([]string, error)
	RoomMessages(ctx context.Context, room string) ([]models.Message, error)
}

// Load заполняет новый кэш из src. Комнаты грузятся параллельно,
// не больше concurrency одновременно.
func Load(ctx context.Context, src Source, concurrency int) (*Store, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	users, err := src.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	roomNames, err := src.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	store := NewStore()
	for _, u := range users {
		store.users[u] = struct{}{}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, name := range roomNames {
		g.Go(func() error {
			r, err := loadRoom(gctx, src, store.users, name)
			if err != nil {
				return err
			}
			mu.Lock()
			store.rooms[name] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		loaderLogger.Error("Cache load failed", "error", err)
		return nil, err
	}

	loaderLogger.Info("Cache loaded", "users", len(users), "rooms", len(roomNames))
	return store, nil
}

// users только читается, пока идет загрузка
func loadRoom(ctx context.Context, src Source, users map[string]struct{}, name string) (*room, error) {
	r := newRoom()

	members, err := src.RoomMembers(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load members of %q: %w", name, err)
	}
	for _, m := range members {
		if _, ok := users[m]; !ok {
			return nil, fmt.Errorf("%w: member %q of room %q is not a known user", ErrIntegrity, m, name)
		}
		r.members[m] = struct{}{}
	}

	messages, err := src.RoomMessages(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load messages of %q: %w", name, err)
	}
	r.messages = messages
	for _, m := range messages {
		if m.Offset+1 > r.nextOffset {
			r.nextOffset = m.Offset + 1
		}
	}
	return r, nil
}
