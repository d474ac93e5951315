package chatservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Scribe/internal/apperror"
	"Scribe/internal/cache"
	"Scribe/internal/models"
	"Scribe/internal/storage"
)

// faultyStore пропускает вызовы в настоящее хранилище, пока не включена ошибка
type faultyStore struct {
	*storage.Storage

	mu         sync.Mutex
	failInsert error
	failJoin   error
	failLeave  error
	inserts    int
}

func (f *faultyStore) InsertMessage(ctx context.Context, msg models.Message) error {
	f.mu.Lock()
	f.inserts++
	err := f.failInsert
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Storage.InsertMessage(ctx, msg)
}

func (f *faultyStore) Join(ctx context.Context, user, room string) error {
	if f.failJoin != nil {
		return f.failJoin
	}
	return f.Storage.Join(ctx, user, room)
}

func (f *faultyStore) Leave(ctx context.Context, user, room string) error {
	if f.failLeave != nil {
		return f.failLeave
	}
	return f.Storage.Leave(ctx, user, room)
}

type fixture struct {
	svc   *ChatService
	store *faultyStore
	cache *cache.Store
}

func newFixture(t *testing.T, rooms ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := storage.NewStorage(storage.DriverSQLite, filepath.Join(t.TempDir(), "scribe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureRooms(ctx, rooms...))

	c, err := cache.Load(ctx, st, 4)
	require.NoError(t, err)

	fs := &faultyStore{Storage: st}
	return &fixture{svc: NewChatService(fs, c, "welcome"), store: fs, cache: c}
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), err.Error())
}

func send(f *fixture, room, user, content string) (models.Message, error) {
	return f.svc.Send(context.Background(), SendInput{
		Room: room, Username: user, Content: content, Timestamp: time.Now(),
	})
}

func TestCreateUserAutoJoinsWelcome(t *testing.T) {
	f := newFixture(t, "welcome", "random")
	ctx := context.Background()

	rooms, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, rooms)

	_, err = f.svc.CreateUser(ctx, "alice")
	requireKind(t, err, apperror.AlreadyExists)

	stored, err := f.store.JoinedRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, stored)
}

func TestCreateUserWithoutDefaultRoom(t *testing.T) {
	f := newFixture(t, "random")

	rooms, err := f.svc.CreateUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Equal(t, []string{"alice"}, f.svc.Users())
}

func TestJoinThenLeaveRestoresMembership(t *testing.T) {
	f := newFixture(t, "welcome", "r")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	_, err = f.svc.Leave(ctx, "alice", "r")
	requireKind(t, err, apperror.NotFound)

	before, _ := f.cache.Members("r")

	rooms, err := f.svc.Join(ctx, "alice", "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "welcome"}, rooms)

	// повторный join - не ошибка
	rooms, err = f.svc.Join(ctx, "alice", "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "welcome"}, rooms)

	rooms, err = f.svc.Leave(ctx, "alice", "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, rooms)

	after, _ := f.cache.Members("r")
	assert.Equal(t, before, after)

	stored, err := f.store.RoomMembers(ctx, "r")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestJoinUnknownUserOrRoom(t *testing.T) {
	f := newFixture(t, "welcome")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, "ghost", "welcome")
	requireKind(t, err, apperror.NotFound)

	_, err = f.svc.Join(ctx, "alice", "nowhere")
	requireKind(t, err, apperror.NotFound)

	_, err = f.svc.JoinedRooms("ghost")
	requireKind(t, err, apperror.NotFound)
}

func TestJoinStorageFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t, "welcome", "r")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	f.store.failJoin = errors.New("disk full")
	_, err = f.svc.Join(ctx, "alice", "r")
	requireKind(t, err, apperror.Internal)
	assert.False(t, f.cache.IsMember("alice", "r"))
}

func TestLeaveStorageFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t, "welcome")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	f.store.failLeave = errors.New("disk full")
	_, err = f.svc.Leave(ctx, "alice", "welcome")
	requireKind(t, err, apperror.Internal)
	assert.True(t, f.cache.IsMember("alice", "welcome"))
}

func TestDeleteUserRemovesEverywhere(t *testing.T) {
	f := newFixture(t, "welcome", "a", "b")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, "bob")
	require.NoError(t, err)
	for _, room := range []string{"a", "b"} {
		_, err = f.svc.Join(ctx, "alice", room)
		require.NoError(t, err)
	}
	_, err = send(f, "a", "alice", "bye")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, "alice"))

	assert.Equal(t, []string{"bob"}, f.svc.Users())
	for room, members := range f.svc.Memberships() {
		assert.NotContains(t, members, "alice", room)
	}
	stored, err := f.store.JoinedRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, stored)

	// история остается
	msgs, err := f.svc.Messages("a")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].Username)

	_, err = f.svc.Join(ctx, "alice", "a")
	requireKind(t, err, apperror.NotFound)

	requireKind(t, f.svc.DeleteUser(ctx, "alice"), apperror.NotFound)
}

func TestCreateAndDeleteRoom(t *testing.T) {
	f := newFixture(t, "welcome")
	ctx := context.Background()

	require.NoError(t, f.svc.CreateRoom(ctx, "r"))
	requireKind(t, f.svc.CreateRoom(ctx, "r"), apperror.AlreadyExists)
	assert.Equal(t, []string{"r", "welcome"}, f.svc.Rooms())

	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, "alice", "r")
	require.NoError(t, err)
	_, err = send(f, "r", "alice", "one")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRoom(ctx, "r"))
	requireKind(t, f.svc.DeleteRoom(ctx, "r"), apperror.NotFound)
	rooms, err := f.svc.JoinedRooms("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, rooms)

	// пересозданная комната начинает журнал с нуля
	require.NoError(t, f.svc.CreateRoom(ctx, "r"))
	_, err = f.svc.Join(ctx, "alice", "r")
	require.NoError(t, err)
	msg, err := send(f, "r", "alice", "again")
	require.NoError(t, err)
	assert.Equal(t, int64(0), msg.Offset)
}

func TestSendAssignsContiguousOffsets(t *testing.T) {
	f := newFixture(t, "welcome")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	for i := int64(0); i < 3; i++ {
		msg, err := send(f, "welcome", "alice", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		assert.Equal(t, i, msg.Offset)
	}

	msgs, err := f.svc.Messages("welcome")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[2].Content)
}

func TestConcurrentSendsHaveNoGapsOrDuplicates(t *testing.T) {
	f := newFixture(t, "welcome", "r")
	ctx := context.Background()

	const senders = 5
	const perSender = 20
	for i := 0; i < senders; i++ {
		user := fmt.Sprintf("user%d", i)
		_, err := f.svc.CreateUser(ctx, user)
		require.NoError(t, err)
		_, err = f.svc.Join(ctx, user, "r")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	offsets := make(chan int64, senders*perSender)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				// параллельно пишем и в другую комнату
				_, _ = send(f, "welcome", user, "noise")
				msg, err := send(f, "r", user, "hello")
				if assert.NoError(t, err) {
					offsets <- msg.Offset
				}
			}
		}(fmt.Sprintf("user%d", i))
	}
	wg.Wait()
	close(offsets)

	var got []int64
	for o := range offsets {
		got = append(got, o)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	require.Len(t, got, senders*perSender)
	for i, o := range got {
		assert.Equal(t, int64(i), o)
	}

	next, _ := f.cache.NextOffset("r")
	assert.Equal(t, int64(senders*perSender), next)

	stored, err := f.store.RoomMessages(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, stored, senders*perSender)
}

func TestTwoMembersSendConcurrently(t *testing.T) {
	f := newFixture(t, "welcome", "r")
	ctx := context.Background()
	for _, user := range []string{"alice", "bob"} {
		_, err := f.svc.CreateUser(ctx, user)
		require.NoError(t, err)
		_, err = f.svc.Join(ctx, user, "r")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := send(f, "r", user, "from "+user)
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	msgs, err := f.svc.Messages("r")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.ElementsMatch(t, []int64{0, 1}, []int64{msgs[0].Offset, msgs[1].Offset})
	assert.ElementsMatch(t, []string{"alice", "bob"}, []string{msgs[0].Username, msgs[1].Username})

	next, _ := f.cache.NextOffset("r")
	assert.Equal(t, int64(2), next)
}

func TestSendByNonMemberIsUnauthorized(t *testing.T) {
	f := newFixture(t, "welcome", "r")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	_, err = send(f, "r", "alice", "let me in")
	requireKind(t, err, apperror.Unauthorized)

	next, _ := f.cache.NextOffset("r")
	assert.Equal(t, int64(0), next)
	assert.Equal(t, 0, f.store.inserts)

	stored, err := f.store.RoomMessages(ctx, "r")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSendUnknownRoomOrUser(t *testing.T) {
	f := newFixture(t, "welcome")
	_, err := f.svc.CreateUser(context.Background(), "alice")
	require.NoError(t, err)

	_, err = send(f, "nowhere", "alice", "hi")
	requireKind(t, err, apperror.NotFound)

	_, err = send(f, "welcome", "ghost", "hi")
	requireKind(t, err, apperror.NotFound)

	_, err = f.svc.Messages("nowhere")
	requireKind(t, err, apperror.NotFound)
}

func TestSendStorageFailureDoesNotConsumeOffset(t *testing.T) {
	f := newFixture(t, "welcome")
	_, err := f.svc.CreateUser(context.Background(), "alice")
	require.NoError(t, err)

	f.store.failInsert = errors.New("i/o timeout")
	_, err = send(f, "welcome", "alice", "lost")
	requireKind(t, err, apperror.Internal)

	next, _ := f.cache.NextOffset("welcome")
	assert.Equal(t, int64(0), next)
	msgs, _ := f.svc.Messages("welcome")
	assert.Empty(t, msgs)

	f.store.failInsert = nil
	msg, err := send(f, "welcome", "alice", "retried")
	require.NoError(t, err)
	assert.Equal(t, int64(0), msg.Offset)
}

func TestSendCacheMatchesStorageAfterReload(t *testing.T) {
	f := newFixture(t, "welcome")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	stamps := []time.Time{
		time.Unix(1700000000, 123456789),
		time.Unix(-86400, 999999999),
		time.UnixMilli(math.MaxInt64),
	}
	for _, ts := range stamps {
		_, err := f.svc.Send(ctx, SendInput{Room: "welcome", Username: "alice", Content: "t", Timestamp: ts})
		require.NoError(t, err)
	}

	reloaded, err := cache.Load(ctx, f.store.Storage, 2)
	require.NoError(t, err)

	before, _ := f.cache.Messages("welcome")
	after, _ := reloaded.Messages("welcome")
	require.Len(t, after, len(stamps))
	assert.Equal(t, before, after)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), after[0].Timestamp)
}

func TestSendRejectsTimestampOutOfRange(t *testing.T) {
	f := newFixture(t, "welcome")
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	for _, ts := range []time.Time{time.Unix(1e16, 0), time.Unix(-1e16, 0)} {
		_, err := f.svc.Send(ctx, SendInput{Room: "welcome", Username: "alice", Content: "t", Timestamp: ts})
		requireKind(t, err, apperror.Unprocessable)
	}

	assert.Zero(t, f.store.inserts)
	next, _ := f.cache.NextOffset("welcome")
	assert.Equal(t, int64(0), next)
}

func TestStorageErrorMapping(t *testing.T) {
	dup := &storage.Error{Op: "x", Kind: storage.KindAlreadyExists}
	missing := &storage.Error{Op: "x", Kind: storage.KindNotFound}

	assert.Equal(t, apperror.AlreadyExists, storageError(dup, "x").Kind)
	assert.Equal(t, apperror.NotFound, storageError(missing, "x").Kind)
	assert.Equal(t, apperror.Internal, storageError(errors.New("io"), "x").Kind)
}
