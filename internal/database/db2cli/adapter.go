package db2cli

import (
	"context"

	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

func init() {
	manager.RegisterDatabase(manager.ImplementationCLI, NewAdapter)
}

// Adapter exposes the command-line backend through the DatabaseManager
// interface. It is a pure delegation shim so the factory can treat both
// implementations uniformly.
type Adapter struct {
	impl *Manager
}

// NewAdapter is the constructor the factory resolves for the cli
// implementation.
func NewAdapter(cfg manager.ResourceConfig, log *logger.Logger) manager.DatabaseManager {
	return &Adapter{impl: New(cfg, log)}
}

// Implementation identifies the backend strategy.
func (a *Adapter) Implementation() manager.Implementation { return manager.ImplementationCLI }

// Kind identifies the resource technology.
func (a *Adapter) Kind() rescapabilities.ResourceKind { return kind }

func (a *Adapter) Connect(ctx context.Context) error    { return a.impl.Connect(ctx) }
func (a *Adapter) Disconnect(ctx context.Context) error { return a.impl.Disconnect(ctx) }
func (a *Adapter) IsConnected() bool                    { return a.impl.IsConnected() }

func (a *Adapter) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]manager.ResultRow, error) {
	return a.impl.ExecuteQuery(ctx, query, params...)
}

func (a *Adapter) ExecuteUpdate(ctx context.Context, query string, params ...interface{}) (int64, error) {
	return a.impl.ExecuteUpdate(ctx, query, params...)
}

func (a *Adapter) ExecuteBatch(ctx context.Context, queries []string, paramsList [][]interface{}) ([]int64, error) {
	return a.impl.ExecuteBatch(ctx, queries, paramsList)
}

func (a *Adapter) WithTransaction(ctx context.Context, fn func(manager.DatabaseManager) error) error {
	return a.impl.WithTransaction(ctx, fn)
}

func (a *Adapter) GetTableInfo(ctx context.Context, table string) ([]manager.ResultRow, error) {
	return a.impl.GetTableInfo(ctx, table)
}

func (a *Adapter) GetResourceInfo(ctx context.Context) (manager.ResultRow, error) {
	return a.impl.GetResourceInfo(ctx)
}

func (a *Adapter) TestConnection(ctx context.Context) bool { return a.impl.TestConnection(ctx) }

var _ manager.DatabaseManager = (*Adapter)(nil)
