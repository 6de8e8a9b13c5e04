package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
)

// LockOptions 分散式鎖設定
type LockOptions struct {
	// KeyPrefix 鎖的 key 前綴，完整 key 為 <prefix>:account:<id>
	KeyPrefix string `yaml:"key_prefix"`
	// Expiry 鎖自動過期時間；必須大於一次記帳的最長耗時
	Expiry time.Duration `yaml:"expiry"`
	// Tries 取鎖嘗試次數
	Tries int `yaml:"tries"`
	// RetryDelay 每次重試間隔
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultLockOptions 回傳預設值
func DefaultLockOptions() LockOptions {
	return LockOptions{
		KeyPrefix:  "ledger:lock",
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
	}
}

func (o *LockOptions) applyDefaults() {
	d := DefaultLockOptions()
	if o.KeyPrefix == "" {
		o.KeyPrefix = d.KeyPrefix
	}
	if o.Expiry <= 0 {
		o.Expiry = d.Expiry
	}
	if o.Tries <= 0 {
		o.Tries = d.Tries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
}

// Locker 以 RedLock 演算法實作的跨行程 Guard，每個帳戶一把鎖
type Locker struct {
	redsync *redsync.Redsync
	opts    LockOptions
	logger  *zap.Logger
}

// NewLocker 建立分散式鎖
func NewLocker(client goredislib.UniversalClient, opts LockOptions, logger *zap.Logger) *Locker {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
		logger:  logger,
	}
}

func (l *Locker) key(accountID int64) string {
	return l.opts.KeyPrefix + ":account:" + strconv.FormatInt(accountID, 10)
}

// WithLock 依 ID 由小到大取得每個帳戶的鎖後執行 fn，結束後反向釋放
func (l *Locker) WithLock(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*redsync.Mutex, 0, len(ids))
	defer func() {
		// 呼叫端取消也要釋放
		unlockCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(unlockCtx); !ok || err != nil {
				l.logger.Warn("failed to release lock",
					zap.String("lock_key", held[i].Name()),
					zap.Bool("unlock_ok", ok),
					zap.Error(err),
				)
			}
		}
	}()

	for _, id := range ids {
		mutex := l.redsync.NewMutex(
			l.key(id),
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := mutex.LockContext(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: acquire lock %s: %w", domain.ErrStorageFailure, mutex.Name(), err)
		}
		held = append(held, mutex)
	}
	return fn(ctx)
}

var _ usecase.Guard = (*Locker)(nil)
