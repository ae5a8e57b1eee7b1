package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("1690000000000", `{"event":"x"}`, "secret")
	b := Sign("1690000000000", `{"event":"x"}`, "secret")
	require.Equal(t, a, b)
}

func TestSignChangesWithInputs(t *testing.T) {
	base := Sign("1690000000000", `{"event":"x"}`, "secret")
	require.NotEqual(t, base, Sign("1690000000001", `{"event":"x"}`, "secret"))
	require.NotEqual(t, base, Sign("1690000000000", `{"event":"y"}`, "secret"))
	require.NotEqual(t, base, Sign("1690000000000", `{"event":"x"}`, "other"))
}

func TestVerifyAcceptsMatchingSignature(t *testing.T) {
	sig := Sign("123", "body", "secret")
	require.True(t, Verify("123", "body", "secret", sig))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	sig := Sign("123", "body", "secret")
	require.False(t, Verify("123", "tampered", "secret", sig))
}
