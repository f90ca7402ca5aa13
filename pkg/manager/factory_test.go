package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

type fakeDatabase struct {
	impl Implementation
}

func (f *fakeDatabase) Connect(ctx context.Context) error    { return nil }
func (f *fakeDatabase) Disconnect(ctx context.Context) error { return nil }
func (f *fakeDatabase) IsConnected() bool                    { return false }
func (f *fakeDatabase) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]ResultRow, error) {
	return nil, nil
}
func (f *fakeDatabase) ExecuteUpdate(ctx context.Context, query string, params ...interface{}) (int64, error) {
	return 0, nil
}
func (f *fakeDatabase) ExecuteBatch(ctx context.Context, queries []string, paramsList [][]interface{}) ([]int64, error) {
	return nil, nil
}
func (f *fakeDatabase) WithTransaction(ctx context.Context, fn func(DatabaseManager) error) error {
	return nil
}
func (f *fakeDatabase) GetTableInfo(ctx context.Context, table string) ([]ResultRow, error) {
	return nil, nil
}
func (f *fakeDatabase) GetResourceInfo(ctx context.Context) (ResultRow, error) {
	return ResultRow{}, nil
}
func (f *fakeDatabase) TestConnection(ctx context.Context) bool { return false }

type fakeMessaging struct {
	impl Implementation
}

func (f *fakeMessaging) Connect(ctx context.Context) error    { return nil }
func (f *fakeMessaging) Disconnect(ctx context.Context) error { return nil }
func (f *fakeMessaging) IsConnected() bool                    { return false }
func (f *fakeMessaging) PutMessage(ctx context.Context, queue string, payload interface{}, props *MessageProperties) error {
	return nil
}
func (f *fakeMessaging) GetMessage(ctx context.Context, queue string, wait time.Duration) (*MessageEnvelope, error) {
	return nil, nil
}
func (f *fakeMessaging) BrowseMessage(ctx context.Context, queue, messageID string) (*MessageEnvelope, error) {
	return nil, nil
}
func (f *fakeMessaging) GetQueueDepth(ctx context.Context, queue string) int { return -1 }
func (f *fakeMessaging) PurgeQueue(ctx context.Context, queue string) (int, error) {
	return 0, nil
}
func (f *fakeMessaging) TestConnection(ctx context.Context) bool { return false }

func registerFakeDatabase(r *Registry, impl Implementation) {
	r.RegisterDatabase(impl, func(cfg ResourceConfig, log *logger.Logger) DatabaseManager {
		return &fakeDatabase{impl: impl}
	})
}

func registerFakeMessaging(r *Registry, impl Implementation) {
	r.RegisterMessaging(impl, func(cfg ResourceConfig, log *logger.Logger) MessagingManager {
		return &fakeMessaging{impl: impl}
	})
}

func boolPtr(b bool) *bool { return &b }

func TestFactoryCreateDatabaseManagerCLI(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	factory := NewFactory(registry)

	tests := []struct {
		name string
		cfg  ResourceConfig
	}{
		{"explicit cli", ResourceConfig{Implementation: "cli"}},
		{"empty defaults to cli", ResourceConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, err := factory.CreateDatabaseManager(tt.cfg, nil)
			require.NoError(t, err)
			db, ok := mgr.(*fakeDatabase)
			require.True(t, ok)
			assert.Equal(t, ImplementationCLI, db.impl)
		})
	}
}

func TestFactoryCreateDatabaseManagerLibrary(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	registerFakeDatabase(registry, ImplementationLibrary)
	factory := NewFactory(registry)

	mgr, err := factory.CreateDatabaseManager(ResourceConfig{Implementation: "library"}, nil)
	require.NoError(t, err)
	db, ok := mgr.(*fakeDatabase)
	require.True(t, ok)
	assert.Equal(t, ImplementationLibrary, db.impl)
}

func TestFactoryLibraryFallsBackToCLI(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	factory := NewFactory(registry)

	log := logger.New("test", "0.0.0")
	log.DisableConsoleOutput()
	entries := log.Subscribe()

	mgr, err := factory.CreateDatabaseManager(ResourceConfig{Implementation: "library"}, log)
	require.NoError(t, err)
	db, ok := mgr.(*fakeDatabase)
	require.True(t, ok)
	assert.Equal(t, ImplementationCLI, db.impl)

	warnings := 0
	for {
		select {
		case entry := <-entries:
			if entry.Level == "WARN" {
				warnings++
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, warnings, "fallback should be logged exactly once")
}

func TestFactoryLibraryWithoutFallbackFails(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	registerFakeMessaging(registry, ImplementationCLI)
	factory := NewFactory(registry)

	cfg := ResourceConfig{Implementation: "library", AutoFallback: boolPtr(false)}

	_, err := factory.CreateDatabaseManager(cfg, nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	_, err = factory.CreateMessagingManager(cfg, nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestFactoryUnknownImplementation(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	factory := NewFactory(registry)

	_, err := factory.CreateDatabaseManager(ResourceConfig{Implementation: "native"}, nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "native")
}

func TestFactoryMemoizesAvailability(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	factory := NewFactory(registry)

	// First library request probes and falls back.
	mgr, err := factory.CreateDatabaseManager(ResourceConfig{Implementation: "library"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ImplementationCLI, mgr.(*fakeDatabase).impl)

	// Registering the library backend afterwards is not observed until the
	// cache is reset.
	registerFakeDatabase(registry, ImplementationLibrary)

	mgr, err = factory.CreateDatabaseManager(ResourceConfig{Implementation: "library"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ImplementationCLI, mgr.(*fakeDatabase).impl)

	factory.ResetAvailabilityCache()

	mgr, err = factory.CreateDatabaseManager(ResourceConfig{Implementation: "library"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ImplementationLibrary, mgr.(*fakeDatabase).impl)
}

func TestGetAvailableImplementationsDoesNotMemoize(t *testing.T) {
	registry := NewRegistry()
	registerFakeDatabase(registry, ImplementationCLI)
	registerFakeMessaging(registry, ImplementationCLI)
	factory := NewFactory(registry)

	available := factory.GetAvailableImplementations()
	assert.True(t, available[rescapabilities.ClassDatabase].CLI)
	assert.False(t, available[rescapabilities.ClassDatabase].Library)
	assert.True(t, available[rescapabilities.ClassMessaging].CLI)
	assert.False(t, available[rescapabilities.ClassMessaging].Library)

	// The query above must not have frozen the unknown state: a backend
	// registered afterwards shows up without a cache reset.
	registerFakeDatabase(registry, ImplementationLibrary)

	available = factory.GetAvailableImplementations()
	assert.True(t, available[rescapabilities.ClassDatabase].Library)

	mgr, err := factory.CreateDatabaseManager(ResourceConfig{Implementation: "library"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ImplementationLibrary, mgr.(*fakeDatabase).impl)
}

func TestFactoryMessagingMirrorsDatabaseSelection(t *testing.T) {
	registry := NewRegistry()
	registerFakeMessaging(registry, ImplementationCLI)
	registerFakeMessaging(registry, ImplementationLibrary)
	factory := NewFactory(registry)

	mgr, err := factory.CreateMessagingManager(ResourceConfig{Implementation: "library"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ImplementationLibrary, mgr.(*fakeMessaging).impl)

	mgr, err = factory.CreateMessagingManager(ResourceConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ImplementationCLI, mgr.(*fakeMessaging).impl)
}
