package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
)

// balanceCache 記憶化的帳戶餘額
// 只能在持有該帳戶的 Guard 時讀寫，與 AppendAtomic 在同一個臨界區內更新
type balanceCache struct {
	mu       sync.Mutex
	balances map[int64]int64
}

func newBalanceCache() *balanceCache {
	return &balanceCache{balances: make(map[int64]int64)}
}

func (c *balanceCache) get(accountID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[accountID]
	return b, ok
}

func (c *balanceCache) set(accountID, balance int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[accountID] = balance
}

// apply 寫入成功後套用分錄的淨影響；未快取的帳戶維持未快取，下次讀取時重新計算
func (c *balanceCache) apply(entries []domain.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for accountID, delta := range domain.BalanceDelta(entries) {
		if b, ok := c.balances[accountID]; ok {
			c.balances[accountID] = b + delta
		}
	}
}

func (c *balanceCache) evict(accountID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.balances, accountID)
}

// aggregate 帳戶聚合：由分錄推導餘額
type aggregate struct {
	store LogStore
	cache *balanceCache
}

// balance 呼叫端必須持有 accountID 的鎖
func (a *aggregate) balance(ctx context.Context, accountID int64) (int64, error) {
	if a.cache != nil {
		if b, ok := a.cache.get(accountID); ok {
			return b, nil
		}
	}
	entries, err := a.store.EntriesFor(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: read entries of account %d: %w", domain.ErrStorageFailure, accountID, err)
	}
	b := domain.Balance(entries)
	if a.cache != nil {
		a.cache.set(accountID, b)
	}
	return b, nil
}

func (a *aggregate) committed(entries []domain.Transaction) {
	if a.cache != nil {
		a.cache.apply(entries)
	}
}

func (a *aggregate) forget(accountID int64) {
	if a.cache != nil {
		a.cache.evict(accountID)
	}
}
