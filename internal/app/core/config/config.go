package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/kafka"
	redis_adapter "github.com/JoeShih716/go-fee-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/pkg/logger"
	"github.com/JoeShih716/go-fee-ledger/pkg/mysql"
	"github.com/JoeShih716/go-fee-ledger/pkg/redis"
)

// 儲存層種類
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// Guard 種類
const (
	GuardMutex     = "mutex"
	GuardSequencer = "sequencer"
	GuardRedis     = "redis"
	GuardMySQL     = "mysql"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Ledger LedgerConfig `yaml:"ledger"`
	Fees   FeesConfig   `yaml:"fees"`
	MySQL  mysql.Config `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  kafka.Config `yaml:"kafka"`
	Log    logger.Config `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LedgerConfig struct {
	Store        string `yaml:"store"`
	Guard        string `yaml:"guard"`
	WALPath      string `yaml:"wal_path"` // memory store 使用；空字串代表不持久化
	BalanceCache bool   `yaml:"balance_cache"`
	QueueSize    int    `yaml:"queue_size"` // sequencer 輸送帶容量
}

// FeesConfig 手續費設定；費率以十進位字串表示 (例如 "0.01")
type FeesConfig struct {
	DepositRate   string `yaml:"deposit_rate"`
	WithdrawFixed *int64 `yaml:"withdraw_fixed"`
	TransferFixed *int64 `yaml:"transfer_fixed"`
}

type RedisConfig struct {
	redis.Config `yaml:",inline"`
	Lock         redis_adapter.LockOptions `yaml:"lock"`
}

// Default 回傳預設設定：記憶體儲存 + 每帳戶互斥鎖
func Default() Config {
	cfg := Config{
		Server: ServerConfig{Addr: ":50051"},
		Ledger: LedgerConfig{
			Store:     StoreMemory,
			Guard:     GuardMutex,
			WALPath:   "wal.log",
			QueueSize: 1000,
		},
		Redis: RedisConfig{Lock: redis_adapter.DefaultLockOptions()},
		Kafka: kafka.Config{Topic: kafka.DefaultTopic},
		Log:   logger.Config{Level: "info"},
	}
	return cfg
}

// Load 載入設定檔；path 為空字串時只使用預設值
// 之後讀取 .env (若存在) 與 LEDGER_* 環境變數覆寫
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		cfgData, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)

	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	cfg.MySQL.ApplyDefaults()
	cfg.Redis.Config.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("LEDGER_SERVER_ADDR"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := os.LookupEnv("LEDGER_STORE"); ok {
		cfg.Ledger.Store = v
	}
	if v, ok := os.LookupEnv("LEDGER_GUARD"); ok {
		cfg.Ledger.Guard = v
	}
	if v, ok := os.LookupEnv("LEDGER_MYSQL_HOST"); ok {
		cfg.MySQL.Host = v
	}
	if v, ok := os.LookupEnv("LEDGER_MYSQL_USER"); ok {
		cfg.MySQL.User = v
	}
	if v, ok := os.LookupEnv("LEDGER_MYSQL_PASSWORD"); ok {
		cfg.MySQL.Password = v
	}
	if v, ok := os.LookupEnv("LEDGER_REDIS_ADDRS"); ok {
		cfg.Redis.Addrs = splitList(v)
	}
	if v, ok := os.LookupEnv("LEDGER_REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
	if v, ok := os.LookupEnv("LEDGER_KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v, ok := os.LookupEnv("LEDGER_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate 檢查設定組合是否合法
func (c *Config) Validate() error {
	switch c.Ledger.Store {
	case StoreMemory, StoreMySQL:
	default:
		return fmt.Errorf("config: unknown ledger.store %q", c.Ledger.Store)
	}
	switch c.Ledger.Guard {
	case GuardMutex, GuardSequencer, GuardRedis:
	case GuardMySQL:
		if c.Ledger.Store != StoreMySQL {
			return fmt.Errorf("config: ledger.guard %q requires ledger.store %q", GuardMySQL, StoreMySQL)
		}
	default:
		return fmt.Errorf("config: unknown ledger.guard %q", c.Ledger.Guard)
	}
	// 記憶化餘額只有在本行程是唯一寫入者時成立
	if c.Ledger.BalanceCache && c.Ledger.Guard != GuardMutex && c.Ledger.Guard != GuardSequencer {
		return fmt.Errorf("config: ledger.balance_cache requires guard %q or %q", GuardMutex, GuardSequencer)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.enabled requires kafka.brokers")
	}
	if _, err := c.Fees.Policy(); err != nil {
		return err
	}
	return nil
}

// Policy 轉成 domain.FeePolicy；沒有設定的欄位使用預設值
func (f FeesConfig) Policy() (domain.FeePolicy, error) {
	p := domain.DefaultFeePolicy()
	if f.DepositRate != "" {
		rate, err := decimal.NewFromString(f.DepositRate)
		if err != nil {
			return domain.FeePolicy{}, fmt.Errorf("%w: deposit_rate %q: %v", domain.ErrInvalidFeePolicy, f.DepositRate, err)
		}
		p.DepositRate = rate
	}
	if f.WithdrawFixed != nil {
		p.WithdrawFixed = *f.WithdrawFixed
	}
	if f.TransferFixed != nil {
		p.TransferFixed = *f.TransferFixed
	}
	if err := p.Validate(); err != nil {
		return domain.FeePolicy{}, err
	}
	return p, nil
}
