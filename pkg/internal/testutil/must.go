package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Must takes the return values of a fallible call and returns the value,
// failing the test if the error is non-nil.
func Must[T any](val T, err error) func(*testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		require.NoError(t, err)
		return val
	}
}
