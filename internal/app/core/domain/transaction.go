package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType 分錄方向，決定餘額計算的正負號
type EntryType uint8

const (
	// 入帳
	EntryTypeCredit EntryType = 1
	// 出帳
	EntryTypeDebit EntryType = 2
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeCredit:
		return "credit"
	case EntryTypeDebit:
		return "debit"
	default:
		return "unknown"
	}
}

// Category 分錄分類，只用於顯示，不影響餘額計算
type Category uint8

const (
	CategoryWithdraw Category = 1
	CategoryDeposit  Category = 2
	CategoryTransfer Category = 3
	CategoryFee      Category = 4
	// CategoryReversal 保留給沖正分錄，目前沒有任何操作會產生
	CategoryReversal Category = 5
)

func (c Category) String() string {
	switch c {
	case CategoryWithdraw:
		return "withdraw"
	case CategoryDeposit:
		return "deposit"
	case CategoryTransfer:
		return "transfer"
	case CategoryFee:
		return "fee"
	case CategoryReversal:
		return "reversal"
	default:
		return "unknown"
	}
}

// Transaction 帳本分錄，建立後不可修改也不會刪除
type Transaction struct {
	// Sequence: 行程內單調遞增的順序號 (由核心引擎分配)
	Sequence uint64 `json:"sequence"`
	// AccountID: 受影響的帳戶
	AccountID int64 `json:"account_id"`
	// Amount: 金額 (最小貨幣單位，必為正數)
	Amount int64 `json:"amount"`
	// CreatedAt: 建立時間 (unix nano)，行程內嚴格遞增
	CreatedAt int64 `json:"created_at"`
	// ID: 全域唯一識別碼
	ID uuid.UUID `json:"id"`
	// Description: 說明文字
	Description string    `json:"description"`
	Type        EntryType `json:"type"`
	Category    Category  `json:"category"`
}

// Signed 回傳分錄對餘額的影響量
func (t *Transaction) Signed() int64 {
	if t.Type == EntryTypeDebit {
		return -t.Amount
	}
	return t.Amount
}

// Time 回傳 CreatedAt 的 time.Time 形式
func (t *Transaction) Time() time.Time {
	return time.Unix(0, t.CreatedAt)
}

// Newer 判斷 t 在對帳單上是否應排在 other 之前 (新的在前)
func (t *Transaction) Newer(other *Transaction) bool {
	if t.CreatedAt != other.CreatedAt {
		return t.CreatedAt > other.CreatedAt
	}
	return t.Sequence > other.Sequence
}
