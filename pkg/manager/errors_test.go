package manager

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

func TestResourceErrorClassification(t *testing.T) {
	opErr := NewResourceError(rescapabilities.DB2, "execute_query", fmt.Errorf("SQL0104N syntax error"))
	assert.True(t, errors.Is(opErr, ErrOperationFailed))
	assert.False(t, IsNotConnected(opErr))
	assert.False(t, IsTimeout(opErr))

	notConn := NotConnected(rescapabilities.DB2, "execute_query")
	assert.True(t, IsNotConnected(notConn))
	assert.False(t, errors.Is(notConn, ErrOperationFailed),
		"a not-connected refusal must not look like a failed operation")

	wrapped := WrapError(rescapabilities.IBMMQ, "get_message",
		NewTimeoutError(rescapabilities.IBMMQ, "amqsget Q1", 5*time.Second))
	assert.True(t, IsTimeout(wrapped))
	assert.False(t, errors.Is(wrapped, ErrOperationFailed))
}

func TestResourceErrorContext(t *testing.T) {
	err := NewResourceError(rescapabilities.DB2, "exec", fmt.Errorf("boom")).
		WithContext("tool", "db2")
	assert.Contains(t, err.Error(), "db2")
	assert.Contains(t, err.Error(), "exec")
}

func TestConnectionError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := NewConnectionError(rescapabilities.IBMMQ, "mqhost", 1414, cause)

	assert.True(t, errors.Is(err, ErrConnectionFailed))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "mqhost:1414")
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError(rescapabilities.DB2, "implementation", "unknown value")
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "implementation")
}

func TestWrapErrorDoesNotDoubleWrap(t *testing.T) {
	inner := NewResourceError(rescapabilities.DB2, "execute_update", fmt.Errorf("boom"))
	outer := WrapError(rescapabilities.DB2, "execute_batch", inner)
	assert.Same(t, error(inner), outer)

	timeout := NewTimeoutError(rescapabilities.DB2, "db2 -tf script.sql", time.Second)
	assert.Same(t, error(timeout), WrapError(rescapabilities.DB2, "execute_query", timeout))

	assert.Nil(t, WrapError(rescapabilities.DB2, "noop", nil))
}
