package domain

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// PostingKind 操作類型
type PostingKind uint8

const (
	// 存款
	PostingKindDeposit PostingKind = 1
	// 提款
	PostingKindWithdraw PostingKind = 2
	// 轉帳
	PostingKindTransfer PostingKind = 3
)

func (k PostingKind) String() string {
	switch k {
	case PostingKindDeposit:
		return "deposit"
	case PostingKindWithdraw:
		return "withdraw"
	case PostingKindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Posting 一次操作的意圖；From 是扣款帳戶，To 是入帳帳戶
type Posting struct {
	Kind   PostingKind
	From   int64
	To     int64
	Amount int64
}

// Validate 純輸入檢查，不需要查詢任何帳戶
func (p Posting) Validate() error {
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Kind == PostingKindTransfer && p.From == p.To {
		return ErrSameAccountTransfer
	}
	return nil
}

// DebitAccount 回傳需要檢查餘額的帳戶；存款沒有扣款帳戶
func (p Posting) DebitAccount() (int64, bool) {
	switch p.Kind {
	case PostingKindWithdraw, PostingKindTransfer:
		return p.From, true
	default:
		return 0, false
	}
}

// CreditAccount 回傳入帳帳戶與它的淨入帳金額；存款的淨額已扣除手續費
func (p Posting) CreditAccount(fee int64) (int64, int64, bool) {
	switch p.Kind {
	case PostingKindDeposit:
		return p.To, p.Amount - fee, true
	case PostingKindTransfer:
		return p.To, p.Amount, true
	default:
		return 0, 0, false
	}
}

// CheckCredit 入帳後餘額不可超過 int64 上限
func CheckCredit(accountID, balance, credit int64) error {
	if credit > 0 && balance > math.MaxInt64-credit {
		return fmt.Errorf("%w: crediting %d to account %d (balance %d) overflows", ErrInvalidAmount, credit, accountID, balance)
	}
	return nil
}

// Required 扣款帳戶需要的最低餘額 (金額 + 手續費)
func (p Posting) Required(fee int64) (int64, error) {
	if p.Amount > math.MaxInt64-fee {
		return 0, fmt.Errorf("%w: amount %d plus fee %d overflows", ErrInvalidAmount, p.Amount, fee)
	}
	return p.Amount + fee, nil
}

// GetLockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (p Posting) GetLockIDs() []int64 {
	ids := make([]int64, 0, 2)
	switch p.Kind {
	case PostingKindTransfer:
		switch {
		case p.From < p.To:
			ids = append(ids, p.From, p.To)
		case p.From > p.To:
			ids = append(ids, p.To, p.From)
		default:
			ids = append(ids, p.From)
		}
	case PostingKindDeposit:
		ids = append(ids, p.To)
	case PostingKindWithdraw:
		ids = append(ids, p.From)
	}
	return ids
}

// Entries 產生這次操作要原子寫入的分錄 (尚未指定 ID 與時間)
func (p Posting) Entries(fee int64) []Transaction {
	var entries []Transaction
	switch p.Kind {
	case PostingKindDeposit:
		entries = append(entries, Transaction{
			AccountID:   p.To,
			Amount:      p.Amount,
			Type:        EntryTypeCredit,
			Category:    CategoryDeposit,
			Description: "Deposit",
		})
		if fee > 0 {
			entries = append(entries, Transaction{
				AccountID:   p.To,
				Amount:      fee,
				Type:        EntryTypeDebit,
				Category:    CategoryFee,
				Description: "Deposit fee",
			})
		}
	case PostingKindWithdraw:
		entries = append(entries, Transaction{
			AccountID:   p.From,
			Amount:      p.Amount,
			Type:        EntryTypeDebit,
			Category:    CategoryWithdraw,
			Description: "Withdraw",
		})
		if fee > 0 {
			entries = append(entries, Transaction{
				AccountID:   p.From,
				Amount:      fee,
				Type:        EntryTypeDebit,
				Category:    CategoryFee,
				Description: "Withdraw fee",
			})
		}
	case PostingKindTransfer:
		entries = append(entries, Transaction{
			AccountID:   p.From,
			Amount:      p.Amount,
			Type:        EntryTypeDebit,
			Category:    CategoryTransfer,
			Description: fmt.Sprintf("Transfer to account %d", p.To),
		})
		if fee > 0 {
			entries = append(entries, Transaction{
				AccountID:   p.From,
				Amount:      fee,
				Type:        EntryTypeDebit,
				Category:    CategoryFee,
				Description: "Transfer fee",
			})
		}
		entries = append(entries, Transaction{
			AccountID:   p.To,
			Amount:      p.Amount,
			Type:        EntryTypeCredit,
			Category:    CategoryTransfer,
			Description: fmt.Sprintf("Transfer from account %d", p.From),
		})
	}
	return entries
}

// PostingEvent 交易成功寫入後發出的事件
type PostingEvent struct {
	PostingID   uuid.UUID     `json:"posting_id"`
	Kind        string        `json:"kind"`
	From        int64         `json:"from_account_id,omitempty"`
	To          int64         `json:"to_account_id,omitempty"`
	Amount      int64         `json:"amount"`
	Fee         int64         `json:"fee"`
	Entries     []Transaction `json:"entries"`
	CommittedAt int64         `json:"committed_at"`
}

// PartitionKey 同一扣款 (或入帳) 帳戶的事件落在同一分區
func (e *PostingEvent) PartitionKey() int64 {
	if e.From != 0 {
		return e.From
	}
	return e.To
}
