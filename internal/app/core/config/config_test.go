package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdir 切到空目錄，避免讀到工作目錄的 .env
func chdir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Ledger.Store)
	assert.Equal(t, GuardMutex, cfg.Ledger.Guard)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, 30*time.Minute, cfg.MySQL.ConnMaxLifetime)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, "ledger:lock", cfg.Redis.Lock.KeyPrefix)

	p, err := cfg.Fees.Policy()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultFeePolicy().WithdrawFixed, p.WithdrawFixed)
	assert.Equal(t, int64(100), p.DepositFee(10000))
}

func TestLoad_FileAndEnv(t *testing.T) {
	chdir(t)
	path := writeConfig(t, `
server:
  addr: ":6000"
ledger:
  store: mysql
  guard: mysql
fees:
  deposit_rate: "0.02"
  withdraw_fixed: 0
mysql:
  host: db.internal
  user: ledger
redis:
  lock:
    expiry: 3s
kafka:
  enabled: true
  brokers: ["k1:9092"]
`)
	t.Setenv("LEDGER_MYSQL_PASSWORD", "secret")
	t.Setenv("LEDGER_REDIS_ADDRS", "r1:6379, r2:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.Addr)
	assert.Equal(t, StoreMySQL, cfg.Ledger.Store)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, "secret", cfg.MySQL.Password)
	assert.Equal(t, []string{"r1:6379", "r2:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 3*time.Second, cfg.Redis.Lock.Expiry)
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)

	p, err := cfg.Fees.Policy()
	require.NoError(t, err)
	assert.Equal(t, int64(200), p.DepositFee(10000))
	assert.Equal(t, int64(0), p.WithdrawFixed)
	assert.Equal(t, domain.DefaultTransferFixed, p.TransferFixed)
}

func TestLoad_DotEnv(t *testing.T) {
	chdir(t)
	require.NoError(t, os.WriteFile(".env", []byte("LEDGER_GUARD=sequencer\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LEDGER_GUARD") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, GuardSequencer, cfg.Ledger.Guard)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown store", mutate: func(c *Config) { c.Ledger.Store = "sqlite" }},
		{name: "unknown guard", mutate: func(c *Config) { c.Ledger.Guard = "etcd" }},
		{name: "mysql guard without mysql store", mutate: func(c *Config) { c.Ledger.Guard = GuardMySQL }},
		{name: "balance cache with redis guard", mutate: func(c *Config) {
			c.Ledger.Guard = GuardRedis
			c.Ledger.BalanceCache = true
		}},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Enabled = true }},
		{name: "bad deposit rate", mutate: func(c *Config) { c.Fees.DepositRate = "abc" }},
		{name: "rate out of range", mutate: func(c *Config) { c.Fees.DepositRate = "1.5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Ledger.Guard = GuardSequencer
	cfg.Ledger.BalanceCache = true
	assert.NoError(t, cfg.Validate())
}

func TestFeesConfig_PolicyErrors(t *testing.T) {
	_, err := FeesConfig{DepositRate: "x"}.Policy()
	assert.ErrorIs(t, err, domain.ErrInvalidFeePolicy)

	negative := int64(-1)
	_, err = FeesConfig{TransferFixed: &negative}.Policy()
	assert.ErrorIs(t, err, domain.ErrInvalidFeePolicy)
}
