package rescapabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		input    string
		expected ResourceKind
		ok       bool
	}{
		{"db2", DB2, true},
		{"DB2", DB2, true},
		{"  ibmdb2  ", DB2, true},
		{"db2luw", DB2, true},
		{"ibmmq", IBMMQ, true},
		{"MQ", IBMMQ, true},
		{"websphere-mq", IBMMQ, true},
		{"", "", false},
		{"oracle", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, ok := ParseID(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestCapabilityMetadata(t *testing.T) {
	db2, ok := Get(DB2)
	require.True(t, ok)
	assert.Equal(t, ClassDatabase, db2.Class)
	assert.Equal(t, "db2", db2.CLITools["shell"])
	assert.Equal(t, "SYSIBM.SYSDUMMY1", db2.SystemObjects["dummy"])
	assert.Equal(t, 50000, db2.DefaultPort)

	mq := MustGet(IBMMQ)
	assert.Equal(t, ClassMessaging, mq.Class)
	assert.Equal(t, "runmqsc", mq.CLITools["shell"])
	assert.Equal(t, "amqsput", mq.CLITools["put"])
	assert.Equal(t, "amqsget", mq.CLITools["get"])
	assert.Equal(t, 1414, mq.DefaultPort)

	_, ok = Get("oracle")
	assert.False(t, ok)
	assert.Panics(t, func() { MustGet("oracle") })
}

func TestKindsForClass(t *testing.T) {
	assert.ElementsMatch(t, []ResourceKind{DB2}, KindsForClass(ClassDatabase))
	assert.ElementsMatch(t, []ResourceKind{IBMMQ}, KindsForClass(ClassMessaging))
	assert.Empty(t, KindsForClass("cache"))
}
