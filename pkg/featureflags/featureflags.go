package featureflags

import (
	"context"
	"fmt"

	"insulead-core/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// FeatureFlag reads remotely managed values. Value returns ok=false when the
// flag is absent, disabled or no backend is configured.
type FeatureFlag interface {
	Value(ctx context.Context, feature string) (value string, ok bool, err error)
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithAnalytics(),
	}
	if p.Config.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(p.Config.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Value(ctx context.Context, feature string) (string, bool, error) {
	if s.client == nil {
		return "", false, nil
	}

	flags, err := s.client.GetEnvironmentFlags()
	if err != nil {
		return "", false, err
	}

	enabled, err := flags.IsFeatureEnabled(feature)
	if err != nil || !enabled {
		return "", false, nil
	}

	v, err := flags.GetFeatureValue(feature)
	if err != nil || v == nil {
		return "", false, nil
	}

	return fmt.Sprint(v), true, nil
}
