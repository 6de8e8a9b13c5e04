package grpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgerv1 "github.com/JoeShih716/go-fee-ledger/api/ledger/v1"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
)

type GrpcServer struct {
	ledgerv1.UnimplementedLedgerServiceServer
	engine   *usecase.Engine
	accounts *usecase.AccountService
	logger   *zap.Logger
}

func NewGrpcServer(engine *usecase.Engine, accounts *usecase.AccountService, logger *zap.Logger) *GrpcServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcServer{
		engine:   engine,
		accounts: accounts,
		logger:   logger,
	}
}

var _ ledgerv1.LedgerServiceServer = (*GrpcServer)(nil)

func (s *GrpcServer) OpenAccount(ctx context.Context, req *ledgerv1.OpenAccountRequest) (*ledgerv1.AccountResponse, error) {
	account, err := s.accounts.Open(ctx, req.HolderName)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ledgerv1.AccountResponse{
		Account: &ledgerv1.Account{
			AccountID:  account.ID,
			HolderName: account.HolderName,
			CreatedAt:  account.CreatedAt,
		},
	}, nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *ledgerv1.GetAccountRequest) (*ledgerv1.AccountResponse, error) {
	view, err := s.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ledgerv1.AccountResponse{Account: toAccount(view)}, nil
}

func (s *GrpcServer) ListAccounts(ctx context.Context, _ *ledgerv1.ListAccountsRequest) (*ledgerv1.ListAccountsResponse, error) {
	views, err := s.accounts.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ledgerv1.ListAccountsResponse{Accounts: make([]*ledgerv1.Account, 0, len(views))}
	for _, view := range views {
		resp.Accounts = append(resp.Accounts, toAccount(view))
	}
	return resp, nil
}

func (s *GrpcServer) RenameAccount(ctx context.Context, req *ledgerv1.RenameAccountRequest) (*ledgerv1.Empty, error) {
	if err := s.accounts.Rename(ctx, req.AccountID, req.HolderName); err != nil {
		return nil, toStatus(err)
	}
	return &ledgerv1.Empty{}, nil
}

func (s *GrpcServer) CloseAccount(ctx context.Context, req *ledgerv1.CloseAccountRequest) (*ledgerv1.Empty, error) {
	if err := s.accounts.Close(ctx, req.AccountID); err != nil {
		return nil, toStatus(err)
	}
	return &ledgerv1.Empty{}, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *ledgerv1.DepositRequest) (*ledgerv1.PostingResponse, error) {
	if err := s.engine.Deposit(ctx, req.AccountID, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	fee := s.engine.Fees().Fee(domain.PostingKindDeposit, req.Amount)
	return s.postingResponse(ctx, req.AccountID, fee), nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *ledgerv1.WithdrawRequest) (*ledgerv1.PostingResponse, error) {
	if err := s.engine.Withdraw(ctx, req.AccountID, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	fee := s.engine.Fees().Fee(domain.PostingKindWithdraw, req.Amount)
	return s.postingResponse(ctx, req.AccountID, fee), nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *ledgerv1.TransferRequest) (*ledgerv1.PostingResponse, error) {
	if err := s.engine.Transfer(ctx, req.SourceAccountID, req.DestinationAccountID, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	fee := s.engine.Fees().Fee(domain.PostingKindTransfer, req.Amount)
	return s.postingResponse(ctx, req.SourceAccountID, fee), nil
}

// postingResponse 交易已經成功，餘額只是附帶資訊 (Best Effort)
// 讀不到餘額時不填 CurrentBalance
func (s *GrpcServer) postingResponse(ctx context.Context, accountID int64, fee int64) *ledgerv1.PostingResponse {
	resp := &ledgerv1.PostingResponse{Fee: fee}
	balance, err := s.engine.Balance(ctx, accountID)
	if err != nil {
		s.logger.Warn("read balance after posting failed",
			zap.Int64("account_id", accountID),
			zap.Error(err),
		)
		return resp
	}
	resp.CurrentBalance = &balance
	return resp
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *ledgerv1.GetBalanceRequest) (*ledgerv1.GetBalanceResponse, error) {
	balance, err := s.engine.Balance(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ledgerv1.GetBalanceResponse{
		Balance: balance,
	}, nil
}

func (s *GrpcServer) GetStatement(ctx context.Context, req *ledgerv1.GetStatementRequest) (*ledgerv1.GetStatementResponse, error) {
	entries, err := s.engine.Statement(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ledgerv1.GetStatementResponse{Entries: make([]*ledgerv1.Entry, 0, len(entries))}
	for i := range entries {
		e := &entries[i]
		resp.Entries = append(resp.Entries, &ledgerv1.Entry{
			ID:          e.ID.String(),
			AccountID:   e.AccountID,
			Amount:      e.Amount,
			Type:        e.Type.String(),
			Category:    e.Category.String(),
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	return resp, nil
}

func toAccount(view *usecase.AccountView) *ledgerv1.Account {
	return &ledgerv1.Account{
		AccountID:  view.Account.ID,
		HolderName: view.Account.HolderName,
		Balance:    view.Balance,
		CreatedAt:  view.Account.CreatedAt,
	}
}

// toStatus 將 domain 錯誤轉成 gRPC status
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccountTransfer),
		errors.Is(err, domain.ErrInvalidHolderName):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrAccountNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountHasBalance):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrStorageFailure):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
