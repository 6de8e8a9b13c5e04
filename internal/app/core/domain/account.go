package domain

// Account 帳戶識別資料；餘額不是欄位，一律由分錄推導
type Account struct {
	ID         int64  `json:"id"`
	HolderName string `json:"holder_name"`
	CreatedAt  int64  `json:"created_at"`
}

func NewAccount(id int64, holderName string, createdAt int64) *Account {
	return &Account{
		ID:         id,
		HolderName: holderName,
		CreatedAt:  createdAt,
	}
}

// Balance 餘額 = 入帳總和 - 出帳總和；沒有分錄時為 0
func Balance(entries []Transaction) int64 {
	var balance int64
	for i := range entries {
		balance += entries[i].Signed()
	}
	return balance
}

// BalanceDelta 回傳一組分錄對各帳戶餘額的淨影響
func BalanceDelta(entries []Transaction) map[int64]int64 {
	delta := make(map[int64]int64, 2)
	for i := range entries {
		delta[entries[i].AccountID] += entries[i].Signed()
	}
	return delta
}
