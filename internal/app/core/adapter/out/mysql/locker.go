package mysql

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-fee-ledger/pkg/mysql"
)

// Locker 以資料庫悲觀鎖作為 Guard
// 開啟交易後 SELECT ... FOR UPDATE 鎖住帳戶列，fn 內的讀寫都在這個交易中，
// fn 成功則 commit (寫入與解鎖同時發生)，失敗則 rollback
type Locker struct {
	client *mysql.Client
}

func NewLocker(client *mysql.Client) *Locker {
	return &Locker{client: client}
}

// WithLock 依 ID 由小到大鎖住帳戶列後執行 fn
func (l *Locker) WithLock(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var (
		fnRan bool
		fnErr error
	)
	err := l.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 取得鎖定帳號 悲觀鎖；不存在的帳號沒有列可鎖，由 fn 內的存在檢查回報
		var rows []sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&rows).Error; err != nil {
			return err
		}
		fnRan = true
		fnErr = fn(withTx(ctx, tx))
		return fnErr
	})
	if fnRan && fnErr != nil {
		return fnErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// 取鎖或 commit 失敗：交易整個回滾，沒有任何分錄寫入
		return fmt.Errorf("%w: mysql lock transaction: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

var _ usecase.Guard = (*Locker)(nil)
