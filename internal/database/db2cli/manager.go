// Package db2cli implements the database capability interface by driving the
// IBM Db2 command-line processor. There is no persistent session: Connect
// remembers success in a flag and every operation re-invokes the tool under
// the same configuration. Transactions are emulated with separate begin,
// commit, and rollback invocations and carry no atomicity guarantee beyond
// what the tool itself provides across those calls.
package db2cli

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zosbridge/commongo/internal/clirunner"
	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

const kind = rescapabilities.DB2

var rowsAffectedRe = regexp.MustCompile(`Number of rows affected\s*:?\s*(\d+)`)

// Manager is the command-line database backend.
type Manager struct {
	cfg    manager.ResourceConfig
	log    *logger.Logger
	runner clirunner.Runner

	// tool is the CLP executable; tests substitute a stub.
	tool string

	connected bool
}

// New creates a command-line database backend. No process is spawned until
// Connect.
func New(cfg manager.ResourceConfig, log *logger.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		log:    log,
		runner: clirunner.Runner{Kind: kind, Timeout: cfg.TimeoutDuration()},
		tool:   rescapabilities.MustGet(kind).CLITools["shell"],
	}
}

func (m *Manager) run(ctx context.Context, args ...string) (clirunner.Result, error) {
	return m.runner.Run(ctx, m.tool, "", args...)
}

// Connect issues a connect invocation and remembers its success.
func (m *Manager) Connect(ctx context.Context) error {
	args := []string{"connect", "to", m.databaseName()}
	if m.cfg.User != "" {
		args = append(args, "user", m.cfg.User, "using", m.cfg.Password)
	}

	res, err := m.run(ctx, args...)
	if err != nil {
		m.log.Error("db2 connect error: %v", err)
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind), err)
	}
	if !res.Succeeded() {
		m.log.Error("failed to connect to database %s: %s", m.databaseName(), res.ErrorText())
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind),
			fmt.Errorf("%w: %s", manager.ErrConnectionFailed, res.ErrorText()))
	}

	m.connected = true
	m.log.Info("connected to database %s", m.databaseName())
	return nil
}

// Disconnect issues a connect-reset invocation. Idempotent when already
// disconnected; a failing reset is logged, not returned, since the logical
// session is gone either way.
func (m *Manager) Disconnect(ctx context.Context) error {
	if !m.connected {
		return nil
	}
	if _, err := m.run(ctx, "connect", "reset"); err != nil {
		m.log.Error("error closing database connection: %v", err)
	}
	m.connected = false
	m.log.Info("database connection closed")
	return nil
}

// IsConnected reports the emulated session flag.
func (m *Manager) IsConnected() bool {
	return m.connected
}

// ExecuteQuery exports the result set to a delimited temp file and parses it.
// The CLP has no parameter binding, so a non-empty params slice is rejected
// rather than silently dropped; callers must pre-render their queries.
func (m *Manager) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]manager.ResultRow, error) {
	if !m.connected {
		return nil, manager.NotConnected(kind, "execute_query")
	}
	if len(params) > 0 {
		return nil, manager.NewResourceError(kind, "execute_query",
			fmt.Errorf("parameter binding is not supported by the command-line backend; render parameters into the query"))
	}

	start := time.Now()

	sqlFile, csvFile, err := m.writeExportScript(query)
	if err != nil {
		return nil, manager.WrapError(kind, "execute_query", err)
	}
	defer os.Remove(sqlFile)
	defer os.Remove(csvFile)

	res, err := m.run(ctx, "-tf", sqlFile)
	if err != nil {
		m.log.Error("query execution error: %v", err)
		return nil, manager.WrapError(kind, "execute_query", err)
	}
	if !res.Succeeded() {
		m.log.Error("query execution failed: %s", res.ErrorText())
		return nil, manager.NewResourceError(kind, "execute_query",
			fmt.Errorf("export failed: %s", res.ErrorText()))
	}

	rows, err := parseDelimitedResults(csvFile)
	if err != nil {
		return nil, manager.WrapError(kind, "execute_query", err)
	}

	m.log.LogDatabaseOperation("SELECT", query, time.Since(start), int64(len(rows)))
	return rows, nil
}

// writeExportScript writes the export statement wrapping the query into a
// temp script and returns the script path and the export target path. The
// caller removes both files on every exit path.
func (m *Manager) writeExportScript(query string) (sqlFile, csvFile string, err error) {
	csv, err := os.CreateTemp("", "commongo-result-*.csv")
	if err != nil {
		return "", "", err
	}
	csvFile = csv.Name()
	csv.Close()

	script, err := os.CreateTemp("", "commongo-query-*.sql")
	if err != nil {
		os.Remove(csvFile)
		return "", "", err
	}
	sqlFile = script.Name()

	stmt := fmt.Sprintf("EXPORT TO %s OF DEL %s;\n", csvFile, strings.TrimRight(strings.TrimSpace(query), ";"))
	if _, err := script.WriteString(stmt); err != nil {
		script.Close()
		os.Remove(sqlFile)
		os.Remove(csvFile)
		return "", "", err
	}
	script.Close()
	return sqlFile, csvFile, nil
}

// ExecuteUpdate runs a DML statement from a temp script. The CLP does not
// reliably report affected rows; when the -m output carries a count it is
// used, otherwise the documented conservative count of 1 is returned.
func (m *Manager) ExecuteUpdate(ctx context.Context, query string, params ...interface{}) (int64, error) {
	if !m.connected {
		return 0, manager.NotConnected(kind, "execute_update")
	}
	if len(params) > 0 {
		return 0, manager.NewResourceError(kind, "execute_update",
			fmt.Errorf("parameter binding is not supported by the command-line backend; render parameters into the query"))
	}

	start := time.Now()

	script, err := os.CreateTemp("", "commongo-update-*.sql")
	if err != nil {
		return 0, manager.WrapError(kind, "execute_update", err)
	}
	defer os.Remove(script.Name())
	if _, err := script.WriteString(strings.TrimRight(strings.TrimSpace(query), ";") + ";\n"); err != nil {
		script.Close()
		return 0, manager.WrapError(kind, "execute_update", err)
	}
	script.Close()

	res, err := m.run(ctx, "-m", "-tf", script.Name())
	if err != nil {
		m.log.Error("update execution error: %v", err)
		return 0, manager.WrapError(kind, "execute_update", err)
	}
	if !res.Succeeded() {
		m.log.Error("update execution failed: %s", res.ErrorText())
		return 0, manager.NewResourceError(kind, "execute_update",
			fmt.Errorf("statement failed: %s", res.ErrorText()))
	}

	affected := int64(1)
	if match := rowsAffectedRe.FindStringSubmatch(res.Stdout); match != nil {
		if n, perr := strconv.ParseInt(match[1], 10, 64); perr == nil {
			affected = n
		}
	}

	m.log.LogDatabaseOperation(statementVerb(query), query, time.Since(start), affected)
	return affected, nil
}

// ExecuteBatch emulates an all-or-nothing batch with begin/commit/rollback
// invocations around per-statement updates.
func (m *Manager) ExecuteBatch(ctx context.Context, queries []string, paramsList [][]interface{}) ([]int64, error) {
	if !m.connected {
		return nil, manager.NotConnected(kind, "execute_batch")
	}

	if err := m.beginTransaction(ctx); err != nil {
		return nil, err
	}

	results := make([]int64, 0, len(queries))
	for i, query := range queries {
		var params []interface{}
		if i < len(paramsList) {
			params = paramsList[i]
		}
		affected, err := m.ExecuteUpdate(ctx, query, params...)
		if err != nil {
			m.rollbackTransaction(ctx)
			m.log.Error("batch execution error: %v", err)
			return nil, manager.WrapError(kind, "execute_batch", err)
		}
		results = append(results, affected)
	}

	if err := m.commitTransaction(ctx); err != nil {
		m.rollbackTransaction(ctx)
		return nil, err
	}

	m.log.Info("batch execution completed: %d statements", len(queries))
	return results, nil
}

// WithTransaction brackets fn with begin and exactly one of commit or
// rollback. fn's error is returned unchanged after rollback; a rollback
// failure is logged and never masks it.
func (m *Manager) WithTransaction(ctx context.Context, fn func(manager.DatabaseManager) error) error {
	if !m.connected {
		return manager.NotConnected(kind, "transaction")
	}

	if err := m.beginTransaction(ctx); err != nil {
		return err
	}
	m.log.Debug("transaction started")

	if err := fn(m); err != nil {
		m.rollbackTransaction(ctx)
		m.log.Error("transaction rolled back: %v", err)
		return err
	}

	if err := m.commitTransaction(ctx); err != nil {
		m.rollbackTransaction(ctx)
		return err
	}
	m.log.Debug("transaction committed")
	return nil
}

func (m *Manager) beginTransaction(ctx context.Context) error {
	res, err := m.run(ctx, "begin", "transaction")
	if err != nil {
		return manager.WrapError(kind, "begin_transaction", err)
	}
	if !res.Succeeded() {
		return manager.NewResourceError(kind, "begin_transaction",
			fmt.Errorf("begin failed: %s", res.ErrorText()))
	}
	return nil
}

func (m *Manager) commitTransaction(ctx context.Context) error {
	res, err := m.run(ctx, "commit")
	if err != nil {
		return manager.WrapError(kind, "commit_transaction", err)
	}
	if !res.Succeeded() {
		return manager.NewResourceError(kind, "commit_transaction",
			fmt.Errorf("commit failed: %s", res.ErrorText()))
	}
	return nil
}

// rollbackTransaction is best-effort: its failure is logged but never
// surfaced, so it cannot mask the error that triggered it.
func (m *Manager) rollbackTransaction(ctx context.Context) {
	res, err := m.run(ctx, "rollback")
	if err != nil {
		m.log.Error("rollback error: %v", err)
		return
	}
	if !res.Succeeded() {
		m.log.Error("rollback failed: %s", res.ErrorText())
	}
}

// GetTableInfo queries the column catalog. CLI mode has no binding, so the
// table name is rendered inline through the catalog's UPPER().
func (m *Manager) GetTableInfo(ctx context.Context, table string) ([]manager.ResultRow, error) {
	catalog := rescapabilities.MustGet(kind).SystemObjects["columns"]
	query := fmt.Sprintf(
		"SELECT COLNAME, TYPENAME, LENGTH, SCALE, NULLS, KEYSEQ FROM %s WHERE TABNAME = UPPER('%s') ORDER BY COLNO",
		catalog, strings.ReplaceAll(table, "'", "''"))
	return m.ExecuteQuery(ctx, query)
}

// GetResourceInfo returns the first row of the instance catalog view, or an
// empty row when the view yields nothing.
func (m *Manager) GetResourceInfo(ctx context.Context) (manager.ResultRow, error) {
	view := rescapabilities.MustGet(kind).SystemObjects["instance"]
	rows, err := m.ExecuteQuery(ctx, "SELECT * FROM "+view)
	if err != nil {
		return manager.ResultRow{}, err
	}
	if len(rows) == 0 {
		return manager.ResultRow{}, nil
	}
	return rows[0], nil
}

// TestConnection probes with the dummy table. Never returns an error.
func (m *Manager) TestConnection(ctx context.Context) bool {
	dummy := rescapabilities.MustGet(kind).SystemObjects["dummy"]
	rows, err := m.ExecuteQuery(ctx, "SELECT 1 FROM "+dummy)
	if err != nil {
		m.log.Error("connection test failed: %v", err)
		return false
	}
	return len(rows) > 0
}

func (m *Manager) databaseName() string {
	if m.cfg.Name == "" {
		return "testdb"
	}
	return m.cfg.Name
}

func statementVerb(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return "SQL"
	}
	return strings.ToUpper(fields[0])
}
