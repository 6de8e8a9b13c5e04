package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
)

// Engine 是記帳核心：驗證、計算手續費、檢查餘額並原子寫入分錄
type Engine struct {
	store     LogStore
	guard     Guard
	fees      domain.FeePolicy
	aggregate *aggregate
	publisher EventPublisher
	clock     *Clock
	logger    *zap.Logger
}

// Option 設定 Engine
type Option func(*Engine)

// WithFeePolicy 指定手續費規則
func WithFeePolicy(p domain.FeePolicy) Option {
	return func(e *Engine) {
		e.fees = p
	}
}

// WithBalanceCache 啟用記憶化餘額；只有本行程是唯一寫入者時才可使用
func WithBalanceCache() Option {
	return func(e *Engine) {
		e.aggregate.cache = newBalanceCache()
	}
}

// WithEventPublisher 交易成功後發出事件
func WithEventPublisher(p EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithLogger 指定 logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock 指定時鐘 (測試用)
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// NewEngine 建立記帳核心
func NewEngine(store LogStore, guard Guard, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("usecase: nil log store")
	}
	if guard == nil {
		return nil, errors.New("usecase: nil guard")
	}
	e := &Engine{
		store:     store,
		guard:     guard,
		fees:      domain.DefaultFeePolicy(),
		aggregate: &aggregate{store: store},
		clock:     NewClock(nil),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.fees.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Fees 回傳目前的手續費規則
func (e *Engine) Fees() domain.FeePolicy {
	return e.fees
}

// Deposit 存款：入帳 amount，並扣 ceil(amount × 費率) 手續費
func (e *Engine) Deposit(ctx context.Context, accountID int64, amount int64) error {
	return e.post(ctx, domain.Posting{Kind: domain.PostingKindDeposit, To: accountID, Amount: amount})
}

// Withdraw 提款：餘額需 >= amount + 提款手續費
func (e *Engine) Withdraw(ctx context.Context, accountID int64, amount int64) error {
	return e.post(ctx, domain.Posting{Kind: domain.PostingKindWithdraw, From: accountID, Amount: amount})
}

// Transfer 轉帳：轉出方餘額需 >= amount + 轉帳手續費，手續費只向轉出方收取
func (e *Engine) Transfer(ctx context.Context, sourceID, destID int64, amount int64) error {
	return e.post(ctx, domain.Posting{Kind: domain.PostingKindTransfer, From: sourceID, To: destID, Amount: amount})
}

// post 所有交易的共同流程
//
// 驗證 -> Guard 取鎖 -> 帳戶存在 -> 讀餘額 -> 手續費 -> 餘額檢查 -> 入帳上限 -> AppendAtomic -> 釋放 -> 發出事件
func (e *Engine) post(ctx context.Context, p domain.Posting) error {
	if err := p.Validate(); err != nil {
		return err
	}
	fee := e.fees.Fee(p.Kind, p.Amount)
	required, err := p.Required(fee)
	if err != nil {
		return err
	}

	postingID := uuid.New()
	var entries []domain.Transaction
	err = e.guard.WithLock(ctx, p.GetLockIDs(), func(ctx context.Context) error {
		if err := e.requireAccounts(ctx, p.GetLockIDs()...); err != nil {
			return err
		}
		if debitID, ok := p.DebitAccount(); ok {
			balance, err := e.aggregate.balance(ctx, debitID)
			if err != nil {
				return err
			}
			if balance < required {
				return fmt.Errorf("%w: account %d has %d, needs %d", domain.ErrInsufficientFunds, debitID, balance, required)
			}
		}
		if creditID, credit, ok := p.CreditAccount(fee); ok {
			balance, err := e.aggregate.balance(ctx, creditID)
			if err != nil {
				return err
			}
			if err := domain.CheckCredit(creditID, balance, credit); err != nil {
				return err
			}
		}

		entries = e.stamp(p.Entries(fee))
		// 尚未寫入前可以放棄，寫入之後就是最終結果
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.AppendAtomic(ctx, entries); err != nil {
			return fmt.Errorf("%w: append %s: %w", domain.ErrStorageFailure, p.Kind, err)
		}
		e.aggregate.committed(entries)
		return nil
	})
	if err != nil {
		e.logRejected(p, err)
		return err
	}

	e.logger.Debug("posting committed",
		zap.String("posting_id", postingID.String()),
		zap.Stringer("kind", p.Kind),
		zap.Int64("from", p.From),
		zap.Int64("to", p.To),
		zap.Int64("amount", p.Amount),
		zap.Int64("fee", fee),
	)
	e.publish(ctx, &domain.PostingEvent{
		PostingID:   postingID,
		Kind:        p.Kind.String(),
		From:        p.From,
		To:          p.To,
		Amount:      p.Amount,
		Fee:         fee,
		Entries:     entries,
		CommittedAt: entries[len(entries)-1].CreatedAt,
	})
	return nil
}

// stamp 指定 ID、順序號與時間戳
func (e *Engine) stamp(entries []domain.Transaction) []domain.Transaction {
	for i := range entries {
		entries[i].ID = uuid.New()
		entries[i].Sequence, entries[i].CreatedAt = e.clock.Tick()
	}
	return entries
}

func (e *Engine) requireAccounts(ctx context.Context, accountIDs ...int64) error {
	for _, id := range accountIDs {
		ok, err := e.store.AccountExists(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: look up account %d: %w", domain.ErrStorageFailure, id, err)
		}
		if !ok {
			return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, id)
		}
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, event *domain.PostingEvent) {
	if e.publisher == nil {
		return
	}
	// 交易已經寫入，事件發送失敗不影響結果
	if err := e.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Warn("publish posting event failed",
			zap.String("posting_id", event.PostingID.String()),
			zap.Error(err),
		)
	}
}

func (e *Engine) logRejected(p domain.Posting, err error) {
	if errors.Is(err, domain.ErrStorageFailure) {
		e.logger.Error("posting failed",
			zap.Stringer("kind", p.Kind),
			zap.Int64("from", p.From),
			zap.Int64("to", p.To),
			zap.Int64("amount", p.Amount),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("posting rejected",
		zap.Stringer("kind", p.Kind),
		zap.Int64("from", p.From),
		zap.Int64("to", p.To),
		zap.Int64("amount", p.Amount),
		zap.Error(err),
	)
}

// Balance 取得帳戶餘額
func (e *Engine) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := e.guard.WithLock(ctx, []int64{accountID}, func(ctx context.Context) error {
		if err := e.requireAccounts(ctx, accountID); err != nil {
			return err
		}
		b, err := e.aggregate.balance(ctx, accountID)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

// Statement 取得帳戶對帳單，新的在前
func (e *Engine) Statement(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	var statement []domain.Transaction
	err := e.guard.WithLock(ctx, []int64{accountID}, func(ctx context.Context) error {
		if err := e.requireAccounts(ctx, accountID); err != nil {
			return err
		}
		entries, err := e.store.EntriesFor(ctx, accountID)
		if err != nil {
			return fmt.Errorf("%w: read entries of account %d: %w", domain.ErrStorageFailure, accountID, err)
		}
		statement = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(statement, func(i, j int) bool {
		return statement[i].Newer(&statement[j])
	})
	return statement, nil
}

// CanDelete 餘額為 0 時回傳 true
func (e *Engine) CanDelete(ctx context.Context, accountID int64) (bool, error) {
	balance, err := e.Balance(ctx, accountID)
	if err != nil {
		return false, err
	}
	return balance == 0, nil
}

// DeleteAccount 在同一個 Guard 內確認餘額為 0 後呼叫 remove 執行實際刪除
func (e *Engine) DeleteAccount(ctx context.Context, accountID int64, remove func(ctx context.Context) error) error {
	return e.guard.WithLock(ctx, []int64{accountID}, func(ctx context.Context) error {
		if err := e.requireAccounts(ctx, accountID); err != nil {
			return err
		}
		balance, err := e.aggregate.balance(ctx, accountID)
		if err != nil {
			return err
		}
		if balance != 0 {
			return fmt.Errorf("%w: account %d has %d", domain.ErrAccountHasBalance, accountID, balance)
		}
		if remove == nil {
			return nil
		}
		if err := remove(ctx); err != nil {
			return err
		}
		e.aggregate.forget(accountID)
		return nil
	})
}
