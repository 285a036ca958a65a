package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIsPerRun(t *testing.T) {
	require.Equal(t, "run_7_progress", key(7))
	require.NotEqual(t, key(7), key(70))
}
