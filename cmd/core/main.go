package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	ledgerv1 "github.com/JoeShih716/go-fee-ledger/api/ledger/v1"
	grpc_adapter "github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/in/grpc"
	kafka_adapter "github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/mysql"
	redis_adapter "github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/config"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-fee-ledger/pkg/logger"
	"github.com/JoeShih716/go-fee-ledger/pkg/mysql"
	"github.com/JoeShih716/go-fee-ledger/pkg/redis"
	"github.com/JoeShih716/go-fee-ledger/pkg/wal"
	_ "github.com/JoeShih716/go-fee-ledger/pkg/grpc" // 註冊 JSON codec
)

// ledgerStore 同時提供分錄與帳戶資料的儲存層
type ledgerStore interface {
	usecase.LogStore
	usecase.AccountRegistry
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Error("core exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	var closers []func()
	defer func() {
		// 反向關閉
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// 2. 初始化儲存層
	var (
		store    ledgerStore
		dbClient *mysql.Client
	)
	switch cfg.Ledger.Store {
	case config.StoreMySQL:
		c, err := mysql.NewClient(cfg.MySQL, zl)
		if err != nil {
			return fmt.Errorf("connect mysql: %w", err)
		}
		closers = append(closers, func() { _ = c.Close() })
		dbClient = c
		zl.Info("connected to mysql", zap.String("host", cfg.MySQL.Host), zap.String("db", cfg.MySQL.DBName))

		repo := mysql_adapter.NewMySQLLedger(c)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		store = repo
	default:
		var walFile *wal.WAL
		if cfg.Ledger.WALPath != "" {
			w, err := wal.NewWAL(cfg.Ledger.WALPath)
			if err != nil {
				return fmt.Errorf("init wal: %w", err)
			}
			// 程式結束時關閉 WAL
			closers = append(closers, func() { _ = w.Close() })
			walFile = w
		}
		s, err := memory_adapter.NewStore(walFile)
		if err != nil {
			return fmt.Errorf("init memory store: %w", err)
		}
		store = s
		zl.Info("memory store ready", zap.String("wal", cfg.Ledger.WALPath))
	}

	// 3. 初始化 Guard
	var guard usecase.Guard
	switch cfg.Ledger.Guard {
	case config.GuardSequencer:
		seq := memory_adapter.NewSequencer(cfg.Ledger.QueueSize)
		seq.Start(context.Background())
		closers = append(closers, seq.Stop)
		guard = seq
	case config.GuardRedis:
		rc, err := redis.NewClient(ctx, cfg.Redis.Config)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		guard = redis_adapter.NewLocker(rc, cfg.Redis.Lock, zl)
	case config.GuardMySQL:
		guard = mysql_adapter.NewLocker(dbClient)
	default:
		guard = memory_adapter.NewAccountLocker()
	}
	zl.Info("guard ready", zap.String("guard", cfg.Ledger.Guard))

	// 4. 初始化 UseCase
	fees, err := cfg.Fees.Policy()
	if err != nil {
		return err
	}
	opts := []usecase.Option{
		usecase.WithFeePolicy(fees),
		usecase.WithLogger(zl.Named("engine")),
	}
	if cfg.Ledger.BalanceCache {
		opts = append(opts, usecase.WithBalanceCache())
	}
	if cfg.Kafka.Enabled {
		pub := kafka_adapter.NewPublisher(cfg.Kafka)
		closers = append(closers, func() { _ = pub.Close() })
		opts = append(opts, usecase.WithEventPublisher(pub))
		zl.Info("posting events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	engine, err := usecase.NewEngine(store, guard, opts...)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	accounts := usecase.NewAccountService(store, engine)

	// 5. 初始化 gRPC Adapter (Driving Adapter)
	grpcServer := grpc_adapter.NewGrpcServer(engine, accounts, zl.Named("grpc"))

	// 6. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(zl.Named("grpc"))))
	ledgerv1.RegisterLedgerServiceServer(s, grpcServer)

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("starting grpc server", zap.String("addr", cfg.Server.Addr))
		serveErr <- s.Serve(lis)
	}()

	// Graceful Shutdown
	select {
	case <-ctx.Done():
		zl.Info("shutting down server")
		s.GracefulStop()
		zl.Info("server exited")
		return nil
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}
}
