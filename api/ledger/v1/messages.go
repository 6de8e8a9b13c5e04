// Package ledgerv1 定義 ledger.v1.LedgerService 的訊息與服務描述。
// 訊息以 JSON codec 傳輸 (content-subtype "json")。
package ledgerv1

type Account struct {
	AccountID  int64  `json:"account_id"`
	HolderName string `json:"holder_name"`
	Balance    int64  `json:"balance"`
	CreatedAt  int64  `json:"created_at"`
}

type Entry struct {
	ID          string `json:"id"`
	AccountID   int64  `json:"account_id"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}

type Empty struct{}

type OpenAccountRequest struct {
	HolderName string `json:"holder_name"`
}

type GetAccountRequest struct {
	AccountID int64 `json:"account_id"`
}

type AccountResponse struct {
	Account *Account `json:"account"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []*Account `json:"accounts"`
}

type RenameAccountRequest struct {
	AccountID  int64  `json:"account_id"`
	HolderName string `json:"holder_name"`
}

type CloseAccountRequest struct {
	AccountID int64 `json:"account_id"`
}

type DepositRequest struct {
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

type WithdrawRequest struct {
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

type TransferRequest struct {
	SourceAccountID      int64 `json:"source_account_id"`
	DestinationAccountID int64 `json:"destination_account_id"`
	Amount               int64 `json:"amount"`
}

// PostingResponse 交易結果；CurrentBalance 為扣款帳戶 (存款時為入帳帳戶) 的最新餘額，讀取失敗時為 nil
type PostingResponse struct {
	Fee            int64  `json:"fee"`
	CurrentBalance *int64 `json:"current_balance,omitempty"`
}

type GetBalanceRequest struct {
	AccountID int64 `json:"account_id"`
}

type GetBalanceResponse struct {
	Balance int64 `json:"balance"`
}

type GetStatementRequest struct {
	AccountID int64 `json:"account_id"`
}

type GetStatementResponse struct {
	Entries []*Entry `json:"entries"`
}
