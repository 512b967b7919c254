package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	require.Equal(t, "gatekeeper:addr:10.0.0.1", BuildRegistrationAddrKey(" 10.0.0.1 "))
	require.Equal(t, "seq:ESC:250601", BuildDailySequenceKey("ESC", "250601"))
}
