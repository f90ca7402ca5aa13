package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan LogEntry) []LogEntry {
	var entries []LogEntry
	for {
		select {
		case e := <-ch:
			entries = append(entries, e)
		default:
			return entries
		}
	}
}

func TestSubscribeReceivesEntries(t *testing.T) {
	log := New("test", "0.0.0")
	log.DisableConsoleOutput()
	ch := log.Subscribe()

	log.Info("first %d", 1)
	log.Error("second")

	entries := drain(ch)
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "first 1", entries[0].Message)
	assert.Equal(t, "ERROR", entries[1].Level)
}

func TestSetMinLevelFilters(t *testing.T) {
	log := New("test", "0.0.0")
	log.DisableConsoleOutput()
	ch := log.Subscribe()

	log.SetMinLevel("warn")
	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept")

	entries := drain(ch)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "ERROR", entries[1].Level)

	// Unknown levels leave the threshold unchanged.
	log.SetMinLevel("chatty")
	log.Info("still dropped")
	assert.Empty(t, drain(ch))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("into the void")
	log.Error("still fine")
	log.LogDatabaseOperation("SELECT", "SELECT 1", time.Millisecond, 1)
	log.LogMessagingOperation("PUT", "Q1", "", 0, time.Millisecond)
}

func TestOperationLogsCarryFields(t *testing.T) {
	log := New("test", "0.0.0")
	log.DisableConsoleOutput()
	ch := log.Subscribe()

	log.LogDatabaseOperation("UPDATE", "UPDATE T SET A = 1", 3*time.Millisecond, 7)
	log.LogMessagingOperation("GET", "DEV.Q1", "abc123", 42, 2*time.Millisecond)

	entries := drain(ch)
	require.Len(t, entries, 2)

	db := entries[0]
	assert.Equal(t, "UPDATE", db.Fields["operation"])
	assert.Equal(t, "7", db.Fields["rows"])

	mq := entries[1]
	assert.Equal(t, "DEV.Q1", mq.Fields["queue"])
	assert.Equal(t, "abc123", mq.Fields["message_id"])
	assert.Equal(t, "42", mq.Fields["size"])
}

func TestWithFields(t *testing.T) {
	log := New("test", "0.0.0")
	log.DisableConsoleOutput()
	ch := log.Subscribe()

	log.WithFields(map[string]string{"queue": "DEV.Q1"}).Warn("slow consumer")

	entries := drain(ch)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEV.Q1", entries[0].Fields["queue"])
}

func TestLongQueryTruncated(t *testing.T) {
	log := New("test", "0.0.0")
	log.DisableConsoleOutput()
	ch := log.Subscribe()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	log.LogDatabaseOperation("SELECT", string(long), time.Millisecond, 0)

	entries := drain(ch)
	require.Len(t, entries, 1)
	assert.Less(t, len(entries[0].Fields["query"]), 200)
}
