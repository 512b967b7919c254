package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"insulead-core/pkg/config"
)

func TestValueWithoutBackend(t *testing.T) {
	ff := ProvideFeatureFlag(FeatureParams{Config: &config.Config{}})

	v, ok, err := ff.Value(context.Background(), "escrow_commission_rate")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}
