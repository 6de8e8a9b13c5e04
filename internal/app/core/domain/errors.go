package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrSameAccountTransfer 轉出與轉入為同一帳戶
	ErrSameAccountTransfer = errors.New("source and destination account are the same")

	// ErrInsufficientFunds 餘額不足以支付金額加手續費
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountHasBalance 帳戶餘額不為零，不可刪除
	ErrAccountHasBalance = errors.New("account balance must be zero")

	// ErrStorageFailure 儲存層 I/O 失敗，本次操作沒有任何分錄寫入
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidHolderName 戶名不可為空
	ErrInvalidHolderName = errors.New("account holder name is required")

	// ErrDuplicateEntry 分錄 ID 重複
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrInvalidFeePolicy 手續費設定不合法
	ErrInvalidFeePolicy = errors.New("invalid fee policy")
)
