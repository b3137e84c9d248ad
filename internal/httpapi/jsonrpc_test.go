package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewResult(t *testing.T) {
	env := NewResult(map[string]int{"count": 3})
	assert.Equal(t, "2.0", env.JSONRPC)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]int{"count": 3}, env.Result)
}

func TestNewError(t *testing.T) {
	env := NewError(ErrorCodeInvalidParams, "missing query", nil)
	assert.Nil(t, env.Result)
	require := env.Error
	assert.Equal(t, ErrorCodeInvalidParams, require.Code)
	assert.Equal(t, "missing query", require.Message)
}
