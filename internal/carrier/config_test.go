package carrier

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	appconfig "github.com/sokoyetu/payments-backend/pkg/config"
)

func TestCarrierConfigs_Defaults(t *testing.T) {
	mtn := MTNConfig(appconfig.CarrierConfig{})
	assert.Equal(t, 3*time.Second, mtn.PollInterval)
	assert.Equal(t, 40, mtn.PollMaxAttempts)
	assert.True(t, mtn.MinAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, mtn.MaxAmount.Equal(decimal.NewFromInt(2_500_000)))

	airtel := AirtelConfig(appconfig.CarrierConfig{})
	assert.Equal(t, 4*time.Second, airtel.PollInterval)
	assert.Equal(t, 30, airtel.PollMaxAttempts)
	assert.True(t, airtel.MaxAmount.Equal(decimal.NewFromInt(2_000_000)))
}

func TestCarrierConfigs_EnvOverrides(t *testing.T) {
	cfg := MTNConfig(appconfig.CarrierConfig{
		PollInterval:    10 * time.Second,
		PollMaxAttempts: 12,
	})
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 12, cfg.PollMaxAttempts)
}
