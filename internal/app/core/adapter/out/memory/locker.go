package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
)

// accountLock 單一帳戶的鎖；容量 1 的 channel 讓取鎖可以被 context 中斷
type accountLock struct {
	sem  chan struct{}
	refs int
}

// AccountLocker 每個帳戶一把鎖，多帳戶時依 ID 由小到大取得
// 沒有人使用的鎖會從表中移除
type AccountLocker struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{
		locks: make(map[int64]*accountLock),
	}
}

// acquireRef 取得 (或建立) 帳戶的鎖並增加引用數
func (l *AccountLocker) acquireRef(accountID int64) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &accountLock{sem: make(chan struct{}, 1)}
		l.locks[accountID] = lock
	}
	lock.refs++
	return lock
}

func (l *AccountLocker) releaseRef(accountID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[accountID]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, accountID)
	}
}

// WithLock 依序取得 accountIDs 的鎖後執行 fn
func (l *AccountLocker) WithLock(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]int64, 0, len(ids))
	defer func() {
		// 反向釋放
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}()

	for _, id := range ids {
		if err := l.lock(ctx, id); err != nil {
			return err
		}
		held = append(held, id)
	}
	return fn(ctx)
}

func (l *AccountLocker) lock(ctx context.Context, accountID int64) error {
	lock := l.acquireRef(accountID)
	select {
	case lock.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.releaseRef(accountID)
		return ctx.Err()
	}
}

func (l *AccountLocker) unlock(accountID int64) {
	l.mu.Lock()
	lock := l.locks[accountID]
	l.mu.Unlock()
	<-lock.sem
	l.releaseRef(accountID)
}

// size 目前表中的鎖數量 (測試用)
func (l *AccountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ usecase.Guard = (*AccountLocker)(nil)
