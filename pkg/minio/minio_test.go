package minio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insulead-core/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestContractorPrefix(t *testing.T) {
	require.Equal(t, "contractors/123/", ContractorPrefix("123"))
}

func TestNewPortfolioStoreDisabled(t *testing.T) {
	store, err := NewPortfolioStore(&config.Config{})
	require.NoError(t, err)
	require.IsType(t, noopStore{}, store)
	require.NoError(t, store.RemoveContractor(context.Background(), "123"))
}
