package chatservice

import "sync"

// roomLocks выдает по мьютексу на комнату
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// lock захватывает мьютекс комнаты и возвращает функцию освобождения
func (l *roomLocks) lock(room string) func() {
	l.mu.Lock()
	m, ok := l.locks[room]
	if !ok {
		m = &sync.Mutex{}
		l.locks[room] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// forget вызывается только под эксклюзивной structure, когда мьютекс комнаты никто не держит
func (l *roomLocks) forget(room string) {
	l.mu.Lock()
	delete(l.locks, room)
	l.mu.Unlock()
}
