package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-fee-ledger/pkg/mysql"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	HolderName string `gorm:"size:255;not null"`
	OpenedAt   int64  `gorm:"autoCreateTime:nano"` // 自動寫入時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() *domain.Account {
	return domain.NewAccount(a.ID, a.HolderName, a.OpenedAt)
}

// sqlEntry 對應資料庫的 ledger_entries 表 (只新增，不更新不刪除)
type sqlEntry struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	RefID       []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.Transaction.ID
	Sequence    uint64
	AccountID   int64 `gorm:"index:idx_entries_account_posted,priority:1;not null"`
	PostedAt    int64 `gorm:"index:idx_entries_account_posted,priority:2;not null"`
	Amount      int64 `gorm:"not null"`
	Type        uint8 `gorm:"not null"`
	Category    uint8 `gorm:"not null"`
	Description string `gorm:"size:255"`
}

func (*sqlEntry) TableName() string {
	return "ledger_entries"
}

func newSQLEntry(t *domain.Transaction) sqlEntry {
	return sqlEntry{
		RefID:       t.ID[:],
		Sequence:    t.Sequence,
		AccountID:   t.AccountID,
		PostedAt:    t.CreatedAt,
		Amount:      t.Amount,
		Type:        uint8(t.Type),
		Category:    uint8(t.Category),
		Description: t.Description,
	}
}

func (e *sqlEntry) toDomain() (domain.Transaction, error) {
	id, err := uuid.FromBytes(e.RefID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("mysql: entry %d has invalid ref_id: %w", e.ID, err)
	}
	return domain.Transaction{
		Sequence:    e.Sequence,
		AccountID:   e.AccountID,
		Amount:      e.Amount,
		CreatedAt:   e.PostedAt,
		ID:          id,
		Description: e.Description,
		Type:        domain.EntryType(e.Type),
		Category:    domain.Category(e.Category),
	}, nil
}

type txKey struct{}

// withTx 把 Locker 開啟的交易放進 context，讓同一個受保護單位內的讀寫都走這個交易
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

type MySQLLedger struct {
	client *mysql.Client
}

func NewMySQLLedger(client *mysql.Client) *MySQLLedger {
	return &MySQLLedger{
		client: client,
	}
}

// conn 優先使用 context 中的交易
func (ledger *MySQLLedger) conn(ctx context.Context) *gorm.DB {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return ledger.client.DB().WithContext(ctx)
}

// Migrate 建立 accounts 與 ledger_entries 表
func (ledger *MySQLLedger) Migrate(ctx context.Context) error {
	return ledger.conn(ctx).AutoMigrate(&sqlAccount{}, &sqlEntry{})
}

// AppendAtomic 在同一個資料庫交易中寫入所有分錄
func (ledger *MySQLLedger) AppendAtomic(ctx context.Context, entries []domain.Transaction) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]sqlEntry, len(entries))
	for i := range entries {
		if entries[i].Amount <= 0 {
			return fmt.Errorf("%w: entry %s", domain.ErrInvalidAmount, entries[i].ID)
		}
		rows[i] = newSQLEntry(&entries[i])
	}

	insert := func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %v", domain.ErrDuplicateEntry, err)
			}
			return err
		}
		return nil
	}
	if tx, ok := txFrom(ctx); ok {
		// 由 Locker 的交易一起 commit
		return insert(tx)
	}
	return ledger.client.DB().WithContext(ctx).Transaction(insert)
}

// EntriesFor 取得帳戶分錄，新的在前
func (ledger *MySQLLedger) EntriesFor(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	var rows []sqlEntry
	err := ledger.conn(ctx).
		Where("account_id = ?", accountID).
		Order("posted_at DESC").
		Order("sequence DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// AccountExists 帳戶是否存在
func (ledger *MySQLLedger) AccountExists(ctx context.Context, accountID int64) (bool, error) {
	var n int64
	err := ledger.conn(ctx).Model(&sqlAccount{}).Where("id = ?", accountID).Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateAccount 開戶
func (ledger *MySQLLedger) CreateAccount(ctx context.Context, holderName string) (*domain.Account, error) {
	row := sqlAccount{HolderName: holderName}
	if err := ledger.conn(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetAccount 取得帳戶資料
func (ledger *MySQLLedger) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var row sqlAccount
	err := ledger.conn(ctx).Where("id = ?", accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListAccounts 依 ID 排序列出所有帳戶
func (ledger *MySQLLedger) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := ledger.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toDomain())
	}
	return accounts, nil
}

// RenameAccount 修改戶名
func (ledger *MySQLLedger) RenameAccount(ctx context.Context, accountID int64, holderName string) error {
	res := ledger.conn(ctx).Model(&sqlAccount{}).Where("id = ?", accountID).Update("holder_name", holderName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	return nil
}

// DeleteAccount 刪除帳戶資料；分錄保留
func (ledger *MySQLLedger) DeleteAccount(ctx context.Context, accountID int64) error {
	res := ledger.conn(ctx).Where("id = ?", accountID).Delete(&sqlAccount{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	return nil
}

var (
	_ usecase.LogStore        = (*MySQLLedger)(nil)
	_ usecase.AccountRegistry = (*MySQLLedger)(nil)
)
