package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/josh-kwaku/chatledger/internal/domain"
)

// MemoryGroupStore keeps one encoded snapshot per chat. Writers of a chat
// are serialised by a per-chat semaphore; readers only take the short map
// lock and never wait behind a writer's read-modify-write.
type MemoryGroupStore struct {
	mu        sync.RWMutex
	snapshots map[int64][]byte

	locksMu     sync.Mutex
	locks       map[int64]*chatLock
	lockTimeout time.Duration
}

// chatLock is one chat's writer semaphore; refs counts holders and waiters.
type chatLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewMemoryGroupStore(lockTimeout time.Duration) *MemoryGroupStore {
	return &MemoryGroupStore{
		snapshots:   make(map[int64][]byte),
		locks:       make(map[int64]*chatLock),
		lockTimeout: lockTimeout,
	}
}

func (s *MemoryGroupStore) Load(_ context.Context, chatID int64) (*domain.GroupState, error) {
	data, ok := s.snapshot(chatID)
	if !ok {
		return domain.NewGroupState(chatID), nil
	}
	state, err := decodeState(chatID, data)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return state, nil
}

func (s *MemoryGroupStore) Update(ctx context.Context, chatID int64, fn func(*domain.GroupState) error) error {
	release, err := s.acquire(ctx, chatID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	defer release()

	data, ok := s.snapshot(chatID)
	state := stateForUpdate(ctx, chatID, data, ok)

	if err := fn(state); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	state.UpdatedAt = time.Now().UTC()
	encoded, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	s.mu.Lock()
	s.snapshots[chatID] = encoded
	s.mu.Unlock()
	return nil
}

func (s *MemoryGroupStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryGroupStore) snapshot(chatID int64) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[chatID]
	return data, ok
}

func (s *MemoryGroupStore) acquire(ctx context.Context, chatID int64) (func(), error) {
	s.locksMu.Lock()
	lock, ok := s.locks[chatID]
	if !ok {
		lock = &chatLock{sem: semaphore.NewWeighted(1)}
		s.locks[chatID] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := lock.sem.Acquire(waitCtx, 1); err != nil {
		s.forget(chatID, lock)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire: %w", ctx.Err())
		}
		return nil, fmt.Errorf("acquire: chat %d: %w", chatID, domain.ErrLockTimeout)
	}
	return func() {
		lock.sem.Release(1)
		s.forget(chatID, lock)
	}, nil
}

// forget drops the chat's lock once nobody holds or waits on it.
func (s *MemoryGroupStore) forget(chatID int64, lock *chatLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, chatID)
	}
}
