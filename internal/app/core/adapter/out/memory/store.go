package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-fee-ledger/pkg/wal"
)

// WAL 記錄種類
const (
	opOpen   = "open"
	opRename = "rename"
	opClose  = "close"
	opPost   = "post"
)

// walRecord 一行 WAL 記錄；一次 AppendAtomic 的所有分錄放在同一行
type walRecord struct {
	Op        string               `json:"op"`
	Account   *domain.Account      `json:"account,omitempty"`
	AccountID int64                `json:"account_id,omitempty"`
	Entries   []domain.Transaction `json:"entries,omitempty"`
}

// Store 是記憶體版的帳本儲存層，可選擇以 WAL 持久化
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	entries: 每個帳戶的分錄 (舊的在前)
//	seen: 已寫入的分錄 ID
//	wal: Write-Ahead Log 實例 (nil 時純記憶體)
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account
	nextID   int64
	entries  map[int64][]domain.Transaction
	seen     map[uuid.UUID]struct{}
	wal      *wal.WAL
	now      func() time.Time
}

// NewStore 建立記憶體儲存層，若有 WAL 先重放恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		accounts: make(map[int64]*domain.Account),
		entries:  make(map[int64][]domain.Transaction),
		seen:     make(map[uuid.UUID]struct{}),
		wal:      w,
		now:      time.Now,
	}
	if w != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return fmt.Errorf("memory: decode wal record: %w", err)
		}
		return s.applyRecord(&rec)
	})
}

// applyRecord 套用一筆記錄到記憶體 (不寫 WAL)
func (s *Store) applyRecord(rec *walRecord) error {
	switch rec.Op {
	case opOpen:
		if rec.Account == nil {
			return fmt.Errorf("memory: open record without account")
		}
		account := *rec.Account
		s.accounts[account.ID] = &account
		if account.ID > s.nextID {
			s.nextID = account.ID
		}
	case opRename:
		if account, ok := s.accounts[rec.AccountID]; ok && rec.Account != nil {
			account.HolderName = rec.Account.HolderName
		}
	case opClose:
		delete(s.accounts, rec.AccountID)
	case opPost:
		for _, e := range rec.Entries {
			s.entries[e.AccountID] = append(s.entries[e.AccountID], e)
			s.seen[e.ID] = struct{}{}
		}
	default:
		return fmt.Errorf("memory: unknown wal op %q", rec.Op)
	}
	return nil
}

// log 寫入 WAL (Critical Path)；寫入失敗時記憶體狀態不變
func (s *Store) log(rec *walRecord) error {
	if s.wal == nil {
		return nil
	}
	if err := s.wal.Write(rec); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWALWriteFailed, err)
	}
	return nil
}

// AppendAtomic 先驗證整批分錄，寫入 WAL 後才更新記憶體
func (s *Store) AppendAtomic(ctx context.Context, entries []domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[uuid.UUID]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.Amount <= 0 {
			return fmt.Errorf("%w: entry %s", domain.ErrInvalidAmount, e.ID)
		}
		if _, ok := s.accounts[e.AccountID]; !ok {
			return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, e.AccountID)
		}
		if _, ok := s.seen[e.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, e.ID)
		}
		if _, ok := batch[e.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, e.ID)
		}
		batch[e.ID] = struct{}{}
	}

	rec := &walRecord{Op: opPost, Entries: append([]domain.Transaction(nil), entries...)}
	if err := s.log(rec); err != nil {
		return err
	}
	return s.applyRecord(rec)
}

// EntriesFor 回傳帳戶分錄的副本，新的在前
func (s *Store) EntriesFor(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[accountID]
	out := make([]domain.Transaction, len(entries))
	for i := range entries {
		out[len(entries)-1-i] = entries[i]
	}
	return out, nil
}

// AccountExists 帳戶是否存在
func (s *Store) AccountExists(ctx context.Context, accountID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[accountID]
	return ok, nil
}

// CreateAccount 開戶，ID 由 1 開始遞增且不重複使用
func (s *Store) CreateAccount(ctx context.Context, holderName string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := domain.NewAccount(s.nextID+1, holderName, s.now().UnixNano())
	rec := &walRecord{Op: opOpen, Account: account}
	if err := s.log(rec); err != nil {
		return nil, err
	}
	if err := s.applyRecord(rec); err != nil {
		return nil, err
	}
	copied := *account
	return &copied, nil
}

// GetAccount 取得帳戶資料
func (s *Store) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	copied := *account
	return &copied, nil
}

// ListAccounts 依 ID 排序列出所有帳戶
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		copied := *account
		accounts = append(accounts, &copied)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

// RenameAccount 修改戶名
func (s *Store) RenameAccount(ctx context.Context, accountID int64, holderName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	rec := &walRecord{Op: opRename, AccountID: accountID, Account: &domain.Account{ID: accountID, HolderName: holderName}}
	if err := s.log(rec); err != nil {
		return err
	}
	return s.applyRecord(rec)
}

// DeleteAccount 刪除帳戶資料；分錄保留 (只能附加)
func (s *Store) DeleteAccount(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	rec := &walRecord{Op: opClose, AccountID: accountID}
	if err := s.log(rec); err != nil {
		return err
	}
	return s.applyRecord(rec)
}

var (
	_ usecase.LogStore        = (*Store)(nil)
	_ usecase.AccountRegistry = (*Store)(nil)
)
