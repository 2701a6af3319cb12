package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	prod, err := New("prop-tracker-service", "prod")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))

	local, err := New("prop-tracker-service", "local")
	require.NoError(t, err)
	assert.True(t, local.Core().Enabled(zap.DebugLevel))
}
