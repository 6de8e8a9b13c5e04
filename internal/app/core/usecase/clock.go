package usecase

import (
	"sync"
	"time"
)

// Clock 分配分錄的順序號與時間戳，兩者在行程內嚴格遞增
type Clock struct {
	mu       sync.Mutex
	now      func() time.Time
	lastNano int64
	sequence uint64
}

// NewClock 建立時鐘；now 為 nil 時使用 time.Now
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Tick 回傳下一個 (sequence, unix nano)
// 牆上時間沒有前進 (或倒退) 時，時間戳以 1ns 遞增
func (c *Clock) Tick() (uint64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().UnixNano()
	if ts <= c.lastNano {
		ts = c.lastNano + 1
	}
	c.lastNano = ts
	c.sequence++
	return c.sequence, ts
}
