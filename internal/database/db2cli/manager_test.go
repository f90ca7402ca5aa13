package db2cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosbridge/commongo/pkg/manager"
)

// newStubManager creates a backend whose tool is a shell script standing in
// for the real command-line processor. Every invocation's arguments are
// appended to a call log the assertions read back.
func newStubManager(t *testing.T, script string) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()

	callLog := filepath.Join(dir, "calls.log")
	t.Setenv("DB2_STUB_CALLS", callLog)

	tool := filepath.Join(dir, "db2")
	full := "#!/bin/sh\necho \"$@\" >> \"$DB2_STUB_CALLS\"\n" + script
	require.NoError(t, os.WriteFile(tool, []byte(full), 0o755))

	m := New(manager.ResourceConfig{Name: "testdb", User: "dbuser", Password: "secret", Timeout: 5}, nil)
	m.tool = tool
	return m, callLog
}

func recordedCalls(t *testing.T, callLog string) []string {
	t.Helper()
	data, err := os.ReadFile(callLog)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// exportStub emulates the query path: it extracts the export target from the
// script file and writes the given delimited content there.
func exportStub(csv string) string {
	return fmt.Sprintf(`if [ "$1" = "-tf" ]; then
  target=$(sed -n 's/^EXPORT TO \([^ ]*\) OF DEL.*/\1/p' "$2")
  printf '%%s\n' '%s' > "$target"
fi
exit 0`, strings.ReplaceAll(csv, "\n", `' '`))
}

func TestConnectDisconnect(t *testing.T) {
	m, callLog := newStubManager(t, "exit 0")
	ctx := context.Background()

	assert.False(t, m.IsConnected())
	require.NoError(t, m.Connect(ctx))
	assert.True(t, m.IsConnected())

	require.NoError(t, m.Disconnect(ctx))
	assert.False(t, m.IsConnected())

	// Disconnect again is a no-op.
	require.NoError(t, m.Disconnect(ctx))

	calls := recordedCalls(t, callLog)
	require.Len(t, calls, 2)
	assert.Equal(t, "connect to testdb user dbuser using secret", calls[0])
	assert.Equal(t, "connect reset", calls[1])
}

func TestConnectFailure(t *testing.T) {
	m, _ := newStubManager(t, `echo "SQL30081N communication error" >&2; exit 2`)

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, manager.ErrConnectionFailed)
	assert.False(t, m.IsConnected())
}

func TestOperationsRequireConnection(t *testing.T) {
	m, _ := newStubManager(t, "exit 0")
	ctx := context.Background()

	_, err := m.ExecuteQuery(ctx, "SELECT 1 FROM SYSIBM.SYSDUMMY1")
	assert.True(t, manager.IsNotConnected(err))

	_, err = m.ExecuteUpdate(ctx, "DELETE FROM T")
	assert.True(t, manager.IsNotConnected(err))

	_, err = m.ExecuteBatch(ctx, []string{"DELETE FROM T"}, nil)
	assert.True(t, manager.IsNotConnected(err))

	err = m.WithTransaction(ctx, func(manager.DatabaseManager) error { return nil })
	assert.True(t, manager.IsNotConnected(err))
}

func TestExecuteQuery(t *testing.T) {
	m, _ := newStubManager(t, exportStub("ID,NAME,SCORE\n1,alpha,2.5\n2,beta,"))
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	rows, err := m.ExecuteQuery(ctx, "SELECT ID, NAME, SCORE FROM RESULTS")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"ID", "NAME", "SCORE"}, rows[0].Columns)
	assert.Equal(t, int64(1), rows[0].Values["ID"])
	assert.Equal(t, "alpha", rows[0].Values["NAME"])
	assert.Equal(t, 2.5, rows[0].Values["SCORE"])
	assert.Nil(t, rows[1].Values["SCORE"])
}

func TestExecuteQueryEmptyResult(t *testing.T) {
	m, _ := newStubManager(t, exportStub("ID,NAME"))
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	rows, err := m.ExecuteQuery(ctx, "SELECT ID, NAME FROM EMPTY_TABLE")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteQueryRejectsParams(t *testing.T) {
	m, _ := newStubManager(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	_, err := m.ExecuteQuery(ctx, "SELECT * FROM T WHERE ID = ?", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, manager.ErrOperationFailed)

	_, err = m.ExecuteUpdate(ctx, "DELETE FROM T WHERE ID = ?", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, manager.ErrOperationFailed)
}

func TestExecuteQueryFailure(t *testing.T) {
	m, _ := newStubManager(t, `if [ "$1" = "-tf" ]; then echo "SQL0204N undefined name"; exit 4; fi; exit 0`)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	_, err := m.ExecuteQuery(ctx, "SELECT * FROM NO_SUCH_TABLE")
	require.Error(t, err)
	assert.ErrorIs(t, err, manager.ErrOperationFailed)
	assert.Contains(t, err.Error(), "SQL0204N")
}

func TestExecuteUpdateParsesAffectedRows(t *testing.T) {
	m, _ := newStubManager(t, `if [ "$1" = "-m" ]; then echo "Number of rows affected : 3"; fi; exit 0`)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	affected, err := m.ExecuteUpdate(ctx, "UPDATE T SET A = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}

func TestExecuteUpdateDefaultsToOneRow(t *testing.T) {
	m, _ := newStubManager(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	affected, err := m.ExecuteUpdate(ctx, "INSERT INTO T VALUES (1)")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestWithTransactionCommit(t *testing.T) {
	m, callLog := newStubManager(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	err := m.WithTransaction(ctx, func(tx manager.DatabaseManager) error {
		_, err := tx.ExecuteUpdate(ctx, "INSERT INTO T VALUES (1)")
		return err
	})
	require.NoError(t, err)

	calls := recordedCalls(t, callLog)
	assert.Equal(t, "begin transaction", calls[1])
	assert.Equal(t, "commit", calls[len(calls)-1])
	for _, call := range calls {
		assert.NotEqual(t, "rollback", call)
	}
}

func TestWithTransactionRollbackPreservesError(t *testing.T) {
	m, callLog := newStubManager(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	boom := fmt.Errorf("business rule violated")
	err := m.WithTransaction(ctx, func(tx manager.DatabaseManager) error {
		return boom
	})
	assert.Same(t, boom, err)

	calls := recordedCalls(t, callLog)
	assert.Equal(t, "begin transaction", calls[1])
	assert.Equal(t, "rollback", calls[len(calls)-1])
}

func TestExecuteBatch(t *testing.T) {
	m, callLog := newStubManager(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	results, err := m.ExecuteBatch(ctx, []string{
		"INSERT INTO T VALUES (1)",
		"INSERT INTO T VALUES (2)",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, results)

	calls := recordedCalls(t, callLog)
	assert.Equal(t, "begin transaction", calls[1])
	assert.Equal(t, "commit", calls[len(calls)-1])
}

func TestExecuteBatchRollsBackOnFailure(t *testing.T) {
	// Parameters are unsupported in CLI mode, so the second statement fails
	// before any tool invocation and the batch must roll back.
	m, callLog := newStubManager(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	_, err := m.ExecuteBatch(ctx,
		[]string{"INSERT INTO T VALUES (1)", "INSERT INTO T VALUES (?)"},
		[][]interface{}{nil, {2}})
	require.Error(t, err)

	calls := recordedCalls(t, callLog)
	assert.Equal(t, "rollback", calls[len(calls)-1])
}

func TestGetTableInfoQuotesName(t *testing.T) {
	m, callLog := newStubManager(t, exportStub("COLNAME,TYPENAME\nID,INTEGER"))
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	rows, err := m.GetTableInfo(ctx, "ORDERS")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ID", rows[0].Values["COLNAME"])

	// The statement is rendered into a temp script, so only the invocation
	// shape can be asserted here.
	calls := recordedCalls(t, callLog)
	assert.True(t, strings.HasPrefix(calls[1], "-tf "))
}

func TestQueryCleansUpTempFiles(t *testing.T) {
	// Point temp-file creation at a private directory so leftovers are
	// unambiguous.
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	m, _ := newStubManager(t, exportStub("ID\n1"))
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))

	_, err := m.ExecuteQuery(ctx, "SELECT ID FROM T")
	require.NoError(t, err)
	_, err = m.ExecuteUpdate(ctx, "DELETE FROM T")
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(tmp, "commongo-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestTestConnection(t *testing.T) {
	m, _ := newStubManager(t, exportStub("1\n1"))
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))
	assert.True(t, m.TestConnection(ctx))

	failing, _ := newStubManager(t, `if [ "$1" = "-tf" ]; then exit 4; fi; exit 0`)
	require.NoError(t, failing.Connect(ctx))
	assert.False(t, failing.TestConnection(ctx))
}
