package usecase

import (
	"context"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
)

// LogStore 是帳本分錄儲存層的介面 (只能附加，依帳戶查詢)
type LogStore interface {
	// AppendAtomic 全部寫入或全部不寫入
	AppendAtomic(ctx context.Context, entries []domain.Transaction) error
	// EntriesFor 取得帳戶所有分錄，新的在前
	EntriesFor(ctx context.Context, accountID int64) ([]domain.Transaction, error)
	// AccountExists 帳戶是否存在
	AccountExists(ctx context.Context, accountID int64) (bool, error)
}

// AccountRegistry 帳戶基本資料 (戶名) 的管理者
type AccountRegistry interface {
	CreateAccount(ctx context.Context, holderName string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	RenameAccount(ctx context.Context, accountID int64, holderName string) error
	DeleteAccount(ctx context.Context, accountID int64) error
}

// Guard 針對一組帳戶提供互斥，讓「讀餘額 -> 判斷 -> 寫入」成為不可分割的單位
type Guard interface {
	// WithLock 依 ID 由小到大取得所有帳戶的鎖後執行 fn，fn 回傳後釋放
	// fn 的錯誤原樣回傳；取鎖失敗 (非 context 取消) 以 domain.ErrStorageFailure 包裝
	WithLock(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error
}

// EventPublisher 交易寫入成功後的事件出口
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.PostingEvent) error
}
