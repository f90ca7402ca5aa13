//go:build enterprise
// +build enterprise

// Package db2native implements the database capability interface on the
// native Db2 driver. It holds a real connection pool, binds parameters
// server-side, and runs transactions on a genuine unit of work. The package
// is compiled only under the enterprise tag because the driver needs the
// Db2 client libraries at build time.
package db2native

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ibmdb/go_ibm_db"

	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

const kind = rescapabilities.DB2

// Manager is the native database backend.
type Manager struct {
	cfg manager.ResourceConfig
	log *logger.Logger
	db  *sql.DB
}

// New creates a native database backend. The pool is opened by Connect.
func New(cfg manager.ResourceConfig, log *logger.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

func (m *Manager) connString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HOSTNAME=%s;DATABASE=%s;PORT=%d;PROTOCOL=TCPIP",
		m.cfg.HostOrDefault(), m.cfg.Name, m.cfg.PortOrDefault(kind))
	if m.cfg.User != "" {
		fmt.Fprintf(&b, ";UID=%s;PWD=%s", m.cfg.User, m.cfg.Password)
	}
	if m.cfg.Schema != "" {
		fmt.Fprintf(&b, ";CURRENTSCHEMA=%s", m.cfg.Schema)
	}
	return b.String()
}

// Connect opens the pool and verifies it with a ping.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := sql.Open("go_ibm_db", m.connString())
	if err != nil {
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind), err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.TimeoutDuration())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		m.log.Error("failed to connect to database %s: %v", m.cfg.Name, err)
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind), err)
	}

	m.db = db
	m.log.Info("connected to database %s", m.cfg.Name)
	return nil
}

// Disconnect closes the pool. Idempotent.
func (m *Manager) Disconnect(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	if err := m.db.Close(); err != nil {
		m.log.Error("error closing database connection: %v", err)
	}
	m.db = nil
	m.log.Info("database connection closed")
	return nil
}

// IsConnected reports whether the pool is open and answering pings.
func (m *Manager) IsConnected() bool {
	if m.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.db.PingContext(ctx) == nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (m *Manager) queryRows(ctx context.Context, q querier, query string, params ...interface{}) ([]manager.ResultRow, error) {
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, manager.NewResourceError(kind, "execute_query", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// ExecuteQuery runs a SELECT with server-side parameter binding.
func (m *Manager) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]manager.ResultRow, error) {
	if m.db == nil {
		return nil, manager.NotConnected(kind, "execute_query")
	}

	start := time.Now()
	result, err := m.queryRows(ctx, m.db, query, params...)
	if err != nil {
		m.log.Error("query execution error: %v", err)
		return nil, err
	}

	m.log.LogDatabaseOperation("SELECT", query, time.Since(start), int64(len(result)))
	return result, nil
}

// ExecuteUpdate runs a DML statement and reports the driver's affected-row
// count.
func (m *Manager) ExecuteUpdate(ctx context.Context, query string, params ...interface{}) (int64, error) {
	if m.db == nil {
		return 0, manager.NotConnected(kind, "execute_update")
	}

	start := time.Now()
	res, err := m.db.ExecContext(ctx, query, params...)
	if err != nil {
		m.log.Error("update execution error: %v", err)
		return 0, manager.NewResourceError(kind, "execute_update", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	m.log.LogDatabaseOperation(statementVerb(query), query, time.Since(start), affected)
	return affected, nil
}

// ExecuteBatch runs the statements inside a single unit of work, rolled back
// as a whole on the first failure.
func (m *Manager) ExecuteBatch(ctx context.Context, queries []string, paramsList [][]interface{}) ([]int64, error) {
	if m.db == nil {
		return nil, manager.NotConnected(kind, "execute_batch")
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, manager.NewResourceError(kind, "execute_batch", err)
	}

	results := make([]int64, 0, len(queries))
	for i, query := range queries {
		var params []interface{}
		if i < len(paramsList) {
			params = paramsList[i]
		}
		res, err := tx.ExecContext(ctx, query, params...)
		if err != nil {
			tx.Rollback()
			m.log.Error("batch execution error: %v", err)
			return nil, manager.NewResourceError(kind, "execute_batch", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		results = append(results, affected)
	}

	if err := tx.Commit(); err != nil {
		return nil, manager.NewResourceError(kind, "execute_batch", err)
	}

	m.log.Info("batch execution completed: %d statements", len(queries))
	return results, nil
}

// WithTransaction runs fn against a view of this manager whose statements go
// through a single unit of work, committed when fn returns nil and rolled
// back otherwise. fn's error is returned unchanged.
func (m *Manager) WithTransaction(ctx context.Context, fn func(manager.DatabaseManager) error) error {
	if m.db == nil {
		return manager.NotConnected(kind, "transaction")
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return manager.NewResourceError(kind, "begin_transaction", err)
	}
	m.log.Debug("transaction started")

	if err := fn(&txManager{outer: m, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.log.Error("rollback failed: %v", rbErr)
		}
		m.log.Error("transaction rolled back: %v", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return manager.NewResourceError(kind, "commit_transaction", err)
	}
	m.log.Debug("transaction committed")
	return nil
}

// GetTableInfo queries the column catalog with a bound table name.
func (m *Manager) GetTableInfo(ctx context.Context, table string) ([]manager.ResultRow, error) {
	catalog := rescapabilities.MustGet(kind).SystemObjects["columns"]
	query := fmt.Sprintf(
		"SELECT COLNAME, TYPENAME, LENGTH, SCALE, NULLS, KEYSEQ FROM %s WHERE TABNAME = UPPER(?) ORDER BY COLNO",
		catalog)
	return m.ExecuteQuery(ctx, query, table)
}

// GetResourceInfo returns the first row of the instance catalog view.
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

func statementVerb(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return "SQL"
	}
	return strings.ToUpper(fields[0])
}
