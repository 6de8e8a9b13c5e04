package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
)

func newAccountService(t *testing.T) (*usecase.AccountService, *usecase.Engine) {
	t.Helper()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	engine, err := usecase.NewEngine(store, memory.NewAccountLocker())
	require.NoError(t, err)
	return usecase.NewAccountService(store, engine), engine
}

func TestAccountService_OpenAndRename(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAccountService(t)

	_, err := svc.Open(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidHolderName)

	account, err := svc.Open(ctx, "  Alice Chen ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)
	assert.Equal(t, "Alice Chen", account.HolderName)

	assert.ErrorIs(t, svc.Rename(ctx, account.ID, ""), domain.ErrInvalidHolderName)
	require.NoError(t, svc.Rename(ctx, account.ID, "Alice Wang"))
	assert.ErrorIs(t, svc.Rename(ctx, 42, "Nobody"), domain.ErrAccountNotFound)

	view, err := svc.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Wang", view.Account.HolderName)
	assert.Equal(t, int64(0), view.Balance)
}

func TestAccountService_List(t *testing.T) {
	ctx := context.Background()
	svc, engine := newAccountService(t)

	a, err := svc.Open(ctx, "alice")
	require.NoError(t, err)
	b, err := svc.Open(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, engine.Deposit(ctx, b.ID, 10000))

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, a.ID, views[0].Account.ID)
	assert.Equal(t, int64(0), views[0].Balance)
	assert.Equal(t, b.ID, views[1].Account.ID)
	assert.Equal(t, int64(9900), views[1].Balance)
}

func TestAccountService_Close(t *testing.T) {
	ctx := context.Background()
	svc, engine := newAccountService(t)

	account, err := svc.Open(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, engine.Deposit(ctx, account.ID, 10000))

	assert.ErrorIs(t, svc.Close(ctx, account.ID), domain.ErrAccountHasBalance)

	// 9900 - (9500 + 400) = 0
	require.NoError(t, engine.Withdraw(ctx, account.ID, 9500))
	require.NoError(t, svc.Close(ctx, account.ID))

	_, err = svc.Get(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, engine.Deposit(ctx, account.ID, 100), domain.ErrAccountNotFound)
	assert.ErrorIs(t, svc.Close(ctx, account.ID), domain.ErrAccountNotFound)

	// 帳號不重複使用
	next, err := svc.Open(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}
