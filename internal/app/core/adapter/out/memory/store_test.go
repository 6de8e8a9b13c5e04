package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/pkg/wal"
)

func credit(accountID, amount int64) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Type:      domain.EntryTypeCredit,
		Category:  domain.CategoryDeposit,
	}
}

func TestStore_AppendAtomicRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(nil)
	require.NoError(t, err)
	a, err := s.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	// 第二筆帳戶不存在，整批都不寫入
	err = s.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 100), credit(99, 100)})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	bad := credit(a.ID, 0)
	err = s.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 100), bad})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	entries, err := s.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_AppendAtomicRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(nil)
	require.NoError(t, err)
	a, err := s.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	e := credit(a.ID, 100)
	require.NoError(t, s.AppendAtomic(ctx, []domain.Transaction{e}))
	assert.ErrorIs(t, s.AppendAtomic(ctx, []domain.Transaction{e}), domain.ErrDuplicateEntry)

	twin := credit(a.ID, 50)
	assert.ErrorIs(t, s.AppendAtomic(ctx, []domain.Transaction{twin, twin}), domain.ErrDuplicateEntry)

	entries, err := s.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_EntriesForNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(nil)
	require.NoError(t, err)
	a, err := s.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	first, second := credit(a.ID, 1), credit(a.ID, 2)
	require.NoError(t, s.AppendAtomic(ctx, []domain.Transaction{first}))
	require.NoError(t, s.AppendAtomic(ctx, []domain.Transaction{second}))

	entries, err := s.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)

	// 回傳的是副本
	entries[0].Amount = 999
	again, err := s.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), again[0].Amount)
}

func TestStore_CancelledContext(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)
	a, err := s.CreateAccount(context.Background(), "alice")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 1)}), context.Canceled)
}

func TestStore_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	s, err := NewStore(w)
	require.NoError(t, err)

	a, err := s.CreateAccount(ctx, "alice")
	require.NoError(t, err)
	b, err := s.CreateAccount(ctx, "bob")
	require.NoError(t, err)
	c, err := s.CreateAccount(ctx, "carol")
	require.NoError(t, err)
	require.NoError(t, s.RenameAccount(ctx, a.ID, "alice wang"))
	require.NoError(t, s.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 300), credit(b.ID, 200)}))
	require.NoError(t, s.DeleteAccount(ctx, c.ID))
	require.NoError(t, w.Close())

	w2, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()
	recovered, err := NewStore(w2)
	require.NoError(t, err)

	got, err := recovered.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice wang", got.HolderName)

	entries, err := recovered.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), domain.Balance(entries))

	ok, err := recovered.AccountExists(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// 恢復後 ID 繼續遞增，不會重複使用已銷戶的 ID
	d, err := recovered.CreateAccount(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.ID)
}

func TestStore_RecoverTruncatesTornTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	s, err := NewStore(w)
	require.NoError(t, err)
	a, err := s.CreateAccount(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, s.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 100)}))
	require.NoError(t, w.Close())

	// 模擬寫到一半崩潰
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"op":"post","entries":[{"account_id":1,"amo`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w2, err := wal.NewWAL(path)
	require.NoError(t, err)
	recovered, err := NewStore(w2)
	require.NoError(t, err)

	entries, err := recovered.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), domain.Balance(entries))

	// 之後的寫入接在完整記錄後面，可以再次恢復
	require.NoError(t, recovered.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 5)}))
	require.NoError(t, w2.Close())

	w3, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w3.Close()
	again, err := NewStore(w3)
	require.NoError(t, err)
	entries, err = again.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(105), domain.Balance(entries))
}

func TestStore_WALWriteFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	w, err := wal.NewWAL(filepath.Join(t.TempDir(), "wal.log"))
	require.NoError(t, err)
	s, err := NewStore(w)
	require.NoError(t, err)
	a, err := s.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, w.Close())
	err = s.AppendAtomic(ctx, []domain.Transaction{credit(a.ID, 100)})
	assert.ErrorIs(t, err, domain.ErrWALWriteFailed)
	assert.ErrorIs(t, err, wal.ErrClosed)

	entries, err := s.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Registry(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(nil)
	require.NoError(t, err)

	_, err = s.GetAccount(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, 1), domain.ErrAccountNotFound)

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := s.CreateAccount(ctx, name)
		require.NoError(t, err)
	}
	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, account := range accounts {
		assert.Equal(t, int64(i+1), account.ID)
	}
	assert.Equal(t, "carol", accounts[0].HolderName)
}
