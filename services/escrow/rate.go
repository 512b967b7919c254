package escrow

import (
	"context"
	"fmt"

	"insulead-core/pkg/config"
	"insulead-core/pkg/featureflags"
	"insulead-core/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const rateFlag = "escrow_commission_rate"

var defaultRate = decimal.RequireFromString("0.10")

// RateProvider returns the commission rate applied to new jobs.
type RateProvider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

type rateProvider struct {
	static decimal.Decimal
	flags  featureflags.FeatureFlag
}

type RateParams struct {
	fx.In
	Config *config.Config
	Flags  featureflags.FeatureFlag `optional:"true"`
}

func NewRateProvider(p RateParams) (RateProvider, error) {
	rate := defaultRate
	if raw := p.Config.Escrow.CommissionRate; raw != "" {
		r, err := parseRate(raw)
		if err != nil {
			return nil, fmt.Errorf("ESCROW.COMMISSION_RATE: %w", err)
		}
		rate = r
	}
	return &rateProvider{static: rate, flags: p.Flags}, nil
}

// Rate prefers the remote value and falls back to the configured one when the
// flag is missing or malformed.
func (r *rateProvider) Rate(ctx context.Context) (decimal.Decimal, error) {
	if r.flags == nil {
		return r.static, nil
	}

	raw, ok, err := r.flags.Value(ctx, rateFlag)
	if err != nil {
		logger.WithTrace(ctx).Warn("commission rate flag unavailable", zap.Error(err))
		return r.static, nil
	}
	if !ok {
		return r.static, nil
	}

	rate, err := parseRate(raw)
	if err != nil {
		logger.WithTrace(ctx).Warn("ignoring invalid commission rate flag", zap.String("value", raw), zap.Error(err))
		return r.static, nil
	}
	return rate, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("rate %s out of range [0, 1)", raw)
	}
	if !rate.Equal(rate.Truncate(4)) {
		return decimal.Zero, fmt.Errorf("rate %s has more than four decimal places", raw)
	}
	return rate, nil
}
