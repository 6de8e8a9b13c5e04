package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// DefaultWithdrawFixed 提款固定手續費 (最小貨幣單位)
	DefaultWithdrawFixed int64 = 400
	// DefaultTransferFixed 轉帳固定手續費，只向轉出方收取
	DefaultTransferFixed int64 = 100
)

// DefaultDepositRate 存款手續費率 1%
var DefaultDepositRate = decimal.RequireFromString("0.01")

// FeePolicy 手續費規則，無狀態
type FeePolicy struct {
	DepositRate   decimal.Decimal
	WithdrawFixed int64
	TransferFixed int64
}

// DefaultFeePolicy 回傳預設費率
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		DepositRate:   DefaultDepositRate,
		WithdrawFixed: DefaultWithdrawFixed,
		TransferFixed: DefaultTransferFixed,
	}
}

// Validate 檢查費率介於 [0, 1)，固定費用不為負
func (p FeePolicy) Validate() error {
	if p.DepositRate.IsNegative() || p.DepositRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: deposit rate %s must be in [0, 1)", ErrInvalidFeePolicy, p.DepositRate)
	}
	if p.WithdrawFixed < 0 {
		return fmt.Errorf("%w: withdraw fee %d is negative", ErrInvalidFeePolicy, p.WithdrawFixed)
	}
	if p.TransferFixed < 0 {
		return fmt.Errorf("%w: transfer fee %d is negative", ErrInvalidFeePolicy, p.TransferFixed)
	}
	return nil
}

// DepositFee 存款手續費 = ceil(amount × DepositRate)
// 十進位精確運算後無條件進位，手續費不會低於實際的小數值
func (p FeePolicy) DepositFee(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(p.DepositRate).Ceil().IntPart()
}

// Fee 依操作類型回傳手續費
func (p FeePolicy) Fee(kind PostingKind, amount int64) int64 {
	switch kind {
	case PostingKindDeposit:
		return p.DepositFee(amount)
	case PostingKindWithdraw:
		return p.WithdrawFixed
	case PostingKindTransfer:
		return p.TransferFixed
	default:
		return 0
	}
}
