package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvCfgDefaults(t *testing.T) {
	cfg, err := GetEnvCfg()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "10000.00", cfg.DepositLimit.String())
	assert.Equal(t, "5000.00", cfg.WithdrawalLimit.String())
	assert.Equal(t, "10000.00", cfg.TransferLimit.String())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5672, cfg.MQPort)
}

func TestGetEnvCfgOverrides(t *testing.T) {
	t.Setenv("APP_BANK_API_URL", "http://bank.test/api")
	t.Setenv("APP_WITHDRAWAL_LIMIT", "2500.50")
	t.Setenv("APP_BANK_API_TIMEOUT", "3s")

	cfg, err := GetEnvCfg()

	require.NoError(t, err)
	assert.Equal(t, "http://bank.test/api", cfg.BankAPIURL)
	assert.Equal(t, "2500.50", cfg.WithdrawalLimit.String())
	assert.Equal(t, 3*time.Second, cfg.BankAPITimeout)
}

func TestGetEnvCfgRejectsInvalidLimit(t *testing.T) {
	t.Setenv("APP_DEPOSIT_LIMIT", "lots")

	_, err := GetEnvCfg()
	assert.Error(t, err)

	t.Setenv("APP_DEPOSIT_LIMIT", "0")

	_, err = GetEnvCfg()
	assert.Error(t, err)
}
