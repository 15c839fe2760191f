package carrier

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/internal/fees"
	appconfig "github.com/sokoyetu/payments-backend/pkg/config"
	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// Config parameterizes the generic adapter for one carrier. MTN and Airtel
// are structurally identical; only these constants differ.
type Config struct {
	Carrier     enums.Carrier
	Method      enums.PaymentMethod
	DisplayName string

	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal

	PollInterval    time.Duration
	PollMaxAttempts int
	PollWallTimeout time.Duration

	// ErrorMessages maps carrier error codes to user-facing messages.
	// Codes outside the map fall back to a generic message.
	ErrorMessages map[string]string
}

// MTNConfig builds the MTN adapter configuration, taking the polling cadence
// from the environment when set and falling back to the carrier defaults.
func MTNConfig(env appconfig.CarrierConfig) Config {
	schedule, _ := fees.ScheduleFor(enums.PaymentMethodMTNMoMo)
	cfg := Config{
		Carrier:         enums.CarrierMTN,
		Method:          enums.PaymentMethodMTNMoMo,
		DisplayName:     "MTN Mobile Money",
		MinAmount:       schedule.MinAmount,
		MaxAmount:       schedule.MaxAmount,
		PollInterval:    3 * time.Second,
		PollMaxAttempts: 40,
		PollWallTimeout: 120 * time.Second,
		ErrorMessages: map[string]string{
			"NOT_ENOUGH_FUNDS":          msgInsufficientBalance,
			"INVALID_PIN":               msgWrongPIN,
			"EXPIRED":                   msgTimeout,
			"PAYER_REJECTED":            msgUserCancelled,
			"NETWORK_ERROR":             msgNetworkError,
			"SERVICE_UNAVAILABLE":       msgServiceUnavailable,
			"INTERNAL_PROCESSING_ERROR": msgServiceUnavailable,
			"PAYER_NOT_FOUND":           msgInvalidPhone,
			"PAYER_LIMIT_REACHED":       msgLimitExceeded,
		},
	}
	return cfg.withEnvOverrides(env)
}

// AirtelConfig builds the Airtel adapter configuration.
func AirtelConfig(env appconfig.CarrierConfig) Config {
	schedule, _ := fees.ScheduleFor(enums.PaymentMethodAirtelMoney)
	cfg := Config{
		Carrier:         enums.CarrierAirtel,
		Method:          enums.PaymentMethodAirtelMoney,
		DisplayName:     "Airtel Money",
		MinAmount:       schedule.MinAmount,
		MaxAmount:       schedule.MaxAmount,
		PollInterval:    4 * time.Second,
		PollMaxAttempts: 30,
		PollWallTimeout: 120 * time.Second,
		ErrorMessages: map[string]string{
			"INSUFFICIENT_BALANCE":  msgInsufficientBalance,
			"INCORRECT_PIN":         msgWrongPIN,
			"TRANSACTION_TIMED_OUT": msgTimeout,
			"USER_CANCELLED":        msgUserCancelled,
			"NETWORK_FAILURE":       msgNetworkError,
			"SERVICE_DOWN":          msgServiceUnavailable,
			"INVALID_MSISDN":        msgInvalidPhone,
			"LIMIT_EXCEEDED":        msgLimitExceeded,
		},
	}
	return cfg.withEnvOverrides(env)
}

func (c Config) withEnvOverrides(env appconfig.CarrierConfig) Config {
	if env.PollInterval > 0 {
		c.PollInterval = env.PollInterval
	}
	if env.PollMaxAttempts > 0 {
		c.PollMaxAttempts = env.PollMaxAttempts
	}
	return c
}
