//go:build enterprise
// +build enterprise

package db2native

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zosbridge/commongo/pkg/manager"
)

// txManager is the transaction-scoped view handed to WithTransaction
// callbacks. Statement methods run on the unit of work; connection-lifecycle
// and nested-transaction calls are refused.
type txManager struct {
	outer *Manager
	tx    *sql.Tx
}

func (t *txManager) Connect(ctx context.Context) error {
	return manager.NewResourceError(kind, "connect", fmt.Errorf("connect is not valid inside a transaction"))
}

func (t *txManager) Disconnect(ctx context.Context) error {
	return manager.NewResourceError(kind, "disconnect", fmt.Errorf("disconnect is not valid inside a transaction"))
}

func (t *txManager) IsConnected() bool { return true }

func (t *txManager) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]manager.ResultRow, error) {
	return t.outer.queryRows(ctx, t.tx, query, params...)
}

func (t *txManager) ExecuteUpdate(ctx context.Context, query string, params ...interface{}) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, manager.NewResourceError(kind, "execute_update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return affected, nil
}

func (t *txManager) ExecuteBatch(ctx context.Context, queries []string, paramsList [][]interface{}) ([]int64, error) {
	results := make([]int64, 0, len(queries))
	for i, query := range queries {
		var params []interface{}
		if i < len(paramsList) {
			params = paramsList[i]
		}
		affected, err := t.ExecuteUpdate(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		results = append(results, affected)
	}
	return results, nil
}

func (t *txManager) WithTransaction(ctx context.Context, fn func(manager.DatabaseManager) error) error {
	return manager.NewResourceError(kind, "transaction", fmt.Errorf("nested transactions are not supported"))
}

func (t *txManager) GetTableInfo(ctx context.Context, table string) ([]manager.ResultRow, error) {
	return t.outer.GetTableInfo(ctx, table)
}

func (t *txManager) GetResourceInfo(ctx context.Context) (manager.ResultRow, error) {
	return t.outer.GetResourceInfo(ctx)
}

func (t *txManager) TestConnection(ctx context.Context) bool { return true }

var _ manager.DatabaseManager = (*txManager)(nil)

// collectRows materializes a result set into ResultRows. Byte slices are
// copied to strings since the driver reuses its scan buffers between rows.
func collectRows(rows *sql.Rows) ([]manager.ResultRow, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, manager.NewResourceError(kind, "execute_query", err)
	}

	var result []manager.ResultRow
	scan := make([]interface{}, len(columns))
	for rows.Next() {
		values := make(map[string]interface{}, len(columns))
		for i := range scan {
			scan[i] = new(interface{})
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, manager.NewResourceError(kind, "execute_query", err)
		}
		for i, col := range columns {
			v := *(scan[i].(*interface{}))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			values[col] = v
		}
		result = append(result, manager.ResultRow{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, manager.NewResourceError(kind, "execute_query", err)
	}
	if result == nil {
		result = []manager.ResultRow{}
	}
	return result, nil
}
