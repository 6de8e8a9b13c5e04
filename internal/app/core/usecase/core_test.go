package usecase_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
)

type fixture struct {
	store  *memory.Store
	engine *usecase.Engine
}

func newFixture(t *testing.T, guard usecase.Guard, opts ...usecase.Option) *fixture {
	t.Helper()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	if guard == nil {
		guard = memory.NewAccountLocker()
	}
	engine, err := usecase.NewEngine(store, guard, opts...)
	require.NoError(t, err)
	return &fixture{store: store, engine: engine}
}

func (f *fixture) open(t *testing.T, name string) int64 {
	t.Helper()
	account, err := f.store.CreateAccount(context.Background(), name)
	require.NoError(t, err)
	return account.ID
}

func (f *fixture) balance(t *testing.T, id int64) int64 {
	t.Helper()
	b, err := f.engine.Balance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestEngine_DepositChargesPercentFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")

	require.NoError(t, f.engine.Deposit(ctx, a, 10000))
	assert.Equal(t, int64(9900), f.balance(t, a))

	b := f.open(t, "bob")
	require.NoError(t, f.engine.Deposit(ctx, b, 5000))
	assert.Equal(t, int64(4950), f.balance(t, b))
}

func TestEngine_WithdrawBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")
	seed(t, f, a, 5000)

	err := f.engine.Withdraw(ctx, a, 4601)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(5000), f.balance(t, a))

	require.NoError(t, f.engine.Withdraw(ctx, a, 4600))
	assert.Equal(t, int64(0), f.balance(t, a))
}

func TestEngine_TransferBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")
	b := f.open(t, "bob")
	seed(t, f, a, 500)

	err := f.engine.Transfer(ctx, a, b, 401)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(500), f.balance(t, a))
	assert.Equal(t, int64(0), f.balance(t, b))

	require.NoError(t, f.engine.Transfer(ctx, a, b, 400))
	assert.Equal(t, int64(0), f.balance(t, a))
	assert.Equal(t, int64(400), f.balance(t, b))
}

func TestEngine_DepositOverflowRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")
	amount := int64(math.MaxInt64 / 100 * 98)

	require.NoError(t, f.engine.Deposit(ctx, a, amount))
	before := f.balance(t, a)

	err := f.engine.Deposit(ctx, a, amount)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, before, f.balance(t, a))

	entries, err := f.engine.Statement(ctx, a)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, f.engine.Withdraw(ctx, a, 100))
}

func TestEngine_TransferOverflowRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")
	b := f.open(t, "bob")
	seed(t, f, a, 1000)
	seed(t, f, b, math.MaxInt64-100)

	err := f.engine.Transfer(ctx, a, b, 101)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, int64(1000), f.balance(t, a))
	assert.Equal(t, int64(math.MaxInt64-100), f.balance(t, b))

	require.NoError(t, f.engine.Transfer(ctx, a, b, 100))
	assert.Equal(t, int64(800), f.balance(t, a))
	assert.Equal(t, int64(math.MaxInt64), f.balance(t, b))
}

// seed 繞過手續費，直接寫入一筆入帳分錄
func seed(t *testing.T, f *fixture, accountID, amount int64) {
	t.Helper()
	err := f.store.AppendAtomic(context.Background(), []domain.Transaction{{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Type:      domain.EntryTypeCredit,
		Category:  domain.CategoryDeposit,
		CreatedAt: time.Now().UnixNano(),
	}})
	require.NoError(t, err)
}

func TestEngine_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")

	assert.ErrorIs(t, f.engine.Deposit(ctx, a, 0), domain.ErrInvalidAmount)
	assert.ErrorIs(t, f.engine.Withdraw(ctx, a, -1), domain.ErrInvalidAmount)
	assert.ErrorIs(t, f.engine.Transfer(ctx, a, a, 10), domain.ErrSameAccountTransfer)
	assert.ErrorIs(t, f.engine.Deposit(ctx, 999, 10), domain.ErrAccountNotFound)
	assert.ErrorIs(t, f.engine.Transfer(ctx, a, 999, 10), domain.ErrAccountNotFound)

	_, err := f.engine.Balance(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = f.engine.Statement(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	entries, err := f.engine.Statement(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_StatementNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")
	b := f.open(t, "bob")

	require.NoError(t, f.engine.Deposit(ctx, a, 10000))
	require.NoError(t, f.engine.Transfer(ctx, a, b, 1000))

	entries, err := f.engine.Statement(ctx, a)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Newer(&entries[i]), "entry %d should be newer than %d", i-1, i)
	}
	assert.Equal(t, "Transfer fee", entries[0].Description)
	assert.Equal(t, "Transfer to account 2", entries[1].Description)
	assert.Equal(t, domain.Balance(entries), f.balance(t, a))

	bEntries, err := f.engine.Statement(ctx, b)
	require.NoError(t, err)
	require.Len(t, bEntries, 1)
	assert.Equal(t, "Transfer from account 1", bEntries[0].Description)
}

// failingStore AppendAtomic 永遠失敗
type failingStore struct {
	*memory.Store
	err error
}

func (s *failingStore) AppendAtomic(ctx context.Context, entries []domain.Transaction) error {
	return s.err
}

func TestEngine_StorageFailureLeavesNoEntries(t *testing.T) {
	ctx := context.Background()
	base, err := memory.NewStore(nil)
	require.NoError(t, err)
	a, err := base.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	store := &failingStore{Store: base, err: errors.New("disk full")}
	engine, err := usecase.NewEngine(store, memory.NewAccountLocker())
	require.NoError(t, err)

	err = engine.Deposit(ctx, a.ID, 10000)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorContains(t, err, "disk full")

	entries, err := base.EntriesFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_CancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	a := f.open(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.engine.Deposit(ctx, a, 10000)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), f.balance(t, a))
}

func TestEngine_ConcurrentWithdrawNeverOverdraws(t *testing.T) {
	guards := map[string]func(t *testing.T) usecase.Guard{
		"account locker": func(t *testing.T) usecase.Guard { return memory.NewAccountLocker() },
		"sequencer": func(t *testing.T) usecase.Guard {
			seq := memory.NewSequencer(64)
			seq.Start(context.Background())
			t.Cleanup(seq.Stop)
			return seq
		},
	}
	for name, newGuard := range guards {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, newGuard(t))
			a := f.open(t, "alice")
			// 10 次提款 (100 + 400) 的額度
			seed(t, f, a, 5000)

			const workers = 50
			var wg sync.WaitGroup
			var ok, rejected atomic.Int64
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := f.engine.Withdraw(ctx, a, 100)
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, domain.ErrInsufficientFunds):
						rejected.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int64(10), ok.Load())
			assert.Equal(t, int64(workers-10), rejected.Load())
			assert.Equal(t, int64(0), f.balance(t, a))
		})
	}
}

func TestEngine_OppositeTransfersDoNotDeadlock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f := newFixture(t, nil)
	a := f.open(t, "alice")
	b := f.open(t, "bob")
	seed(t, f, a, 1_000_000)
	seed(t, f, b, 1_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.engine.Transfer(ctx, a, b, 10))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.engine.Transfer(ctx, b, a, 10))
		}()
	}
	wg.Wait()

	// 每筆轉帳收 100 手續費，總額只減少手續費
	total := f.balance(t, a) + f.balance(t, b)
	assert.Equal(t, int64(2_000_000-200*100), total)
}

func TestEngine_BalanceCacheMatchesFold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, usecase.WithBalanceCache())
	a := f.open(t, "alice")
	b := f.open(t, "bob")

	require.NoError(t, f.engine.Deposit(ctx, a, 10000))
	assert.Equal(t, int64(9900), f.balance(t, a))
	require.NoError(t, f.engine.Transfer(ctx, a, b, 1000))
	require.NoError(t, f.engine.Withdraw(ctx, b, 500))

	for _, id := range []int64{a, b} {
		entries, err := f.store.EntriesFor(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.Balance(entries), f.balance(t, id))
	}
	assert.Equal(t, int64(8800), f.balance(t, a))
	assert.Equal(t, int64(100), f.balance(t, b))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.PostingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.PostingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestEngine_PublishesCommittedPostings(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	f := newFixture(t, nil, usecase.WithEventPublisher(pub))
	a := f.open(t, "alice")
	b := f.open(t, "bob")

	require.NoError(t, f.engine.Deposit(ctx, a, 10000))
	require.NoError(t, f.engine.Transfer(ctx, a, b, 1000))
	// 被拒絕的交易不發事件
	require.Error(t, f.engine.Withdraw(ctx, b, 1_000_000))

	require.Len(t, pub.events, 2)
	assert.Equal(t, "deposit", pub.events[0].Kind)
	assert.Equal(t, int64(100), pub.events[0].Fee)
	assert.Len(t, pub.events[0].Entries, 2)
	assert.Equal(t, "transfer", pub.events[1].Kind)
	assert.Equal(t, a, pub.events[1].PartitionKey())
	assert.Len(t, pub.events[1].Entries, 3)
}

func TestEngine_PublishFailureDoesNotFailPosting(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(t, nil, usecase.WithEventPublisher(pub))
	a := f.open(t, "alice")

	require.NoError(t, f.engine.Deposit(ctx, a, 10000))
	assert.Equal(t, int64(9900), f.balance(t, a))
}

func TestEngine_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.open(t, "alice")

	ok, err := f.engine.CanDelete(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)

	seed(t, f, a, 500)
	ok, err = f.engine.CanDelete(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	removed := false
	err = f.engine.DeleteAccount(ctx, a, func(ctx context.Context) error {
		removed = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrAccountHasBalance)
	assert.False(t, removed)
}

func TestNewEngine_RejectsInvalidArguments(t *testing.T) {
	store, err := memory.NewStore(nil)
	require.NoError(t, err)

	_, err = usecase.NewEngine(nil, memory.NewAccountLocker())
	assert.Error(t, err)
	_, err = usecase.NewEngine(store, nil)
	assert.Error(t, err)
	_, err = usecase.NewEngine(store, memory.NewAccountLocker(), usecase.WithFeePolicy(domain.FeePolicy{
		DepositRate:   domain.DefaultDepositRate,
		WithdrawFixed: -1,
	}))
	assert.ErrorIs(t, err, domain.ErrInvalidFeePolicy)
}
