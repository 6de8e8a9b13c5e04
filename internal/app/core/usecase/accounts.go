package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
)

// AccountView 帳戶資料加上當下餘額
type AccountView struct {
	Account *domain.Account
	Balance int64
}

// AccountService 帳戶基本資料操作；刪除一律經過 Engine 的餘額檢查
type AccountService struct {
	registry AccountRegistry
	engine   *Engine
}

func NewAccountService(registry AccountRegistry, engine *Engine) *AccountService {
	return &AccountService{
		registry: registry,
		engine:   engine,
	}
}

// Open 開戶
func (s *AccountService) Open(ctx context.Context, holderName string) (*domain.Account, error) {
	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return nil, domain.ErrInvalidHolderName
	}
	return s.registry.CreateAccount(ctx, holderName)
}

// Rename 修改戶名
func (s *AccountService) Rename(ctx context.Context, accountID int64, holderName string) error {
	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return domain.ErrInvalidHolderName
	}
	return s.registry.RenameAccount(ctx, accountID, holderName)
}

// Get 取得帳戶與餘額
func (s *AccountService) Get(ctx context.Context, accountID int64) (*AccountView, error) {
	account, err := s.registry.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balance, err := s.engine.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountView{Account: account, Balance: balance}, nil
}

// List 列出所有帳戶與餘額
func (s *AccountService) List(ctx context.Context) ([]*AccountView, error) {
	accounts, err := s.registry.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*AccountView, 0, len(accounts))
	for _, account := range accounts {
		balance, err := s.engine.Balance(ctx, account.ID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			// 列出後被銷戶
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, &AccountView{Account: account, Balance: balance})
	}
	return views, nil
}

// Close 銷戶；餘額不為 0 時回傳 domain.ErrAccountHasBalance
func (s *AccountService) Close(ctx context.Context, accountID int64) error {
	return s.engine.DeleteAccount(ctx, accountID, func(ctx context.Context) error {
		return s.registry.DeleteAccount(ctx, accountID)
	})
}
