package manager

import (
	"sync"

	"github.com/zosbridge/commongo/pkg/logger"
)

// DatabaseConstructor builds a database backend from a resource configuration.
// Constructors must not touch the network; connection happens on Connect.
type DatabaseConstructor func(cfg ResourceConfig, log *logger.Logger) DatabaseManager

// MessagingConstructor builds a messaging backend from a resource configuration.
type MessagingConstructor func(cfg ResourceConfig, log *logger.Logger) MessagingManager

// Registry manages the registration and retrieval of backend constructors,
// keyed by capability class and implementation strategy. Backend packages
// register themselves from init(): the CLI backends unconditionally, the
// native backends only when their driver is compiled in, so "is there a
// library constructor registered" is exactly "is the native dependency
// available".
type Registry struct {
	mu        sync.RWMutex
	database  map[Implementation]DatabaseConstructor
	messaging map[Implementation]MessagingConstructor
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		database:  make(map[Implementation]DatabaseConstructor),
		messaging: make(map[Implementation]MessagingConstructor),
	}
}

// RegisterDatabase registers a database backend constructor for an
// implementation strategy, replacing any previous registration.
func (r *Registry) RegisterDatabase(impl Implementation, ctor DatabaseConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.database[impl] = ctor
}

// RegisterMessaging registers a messaging backend constructor for an
// implementation strategy, replacing any previous registration.
func (r *Registry) RegisterMessaging(impl Implementation, ctor MessagingConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messaging[impl] = ctor
}

// DatabaseConstructorFor returns the registered database constructor for an
// implementation, if any.
func (r *Registry) DatabaseConstructorFor(impl Implementation) (DatabaseConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.database[impl]
	return ctor, ok
}

// MessagingConstructorFor returns the registered messaging constructor for an
// implementation, if any.
func (r *Registry) MessagingConstructorFor(impl Implementation) (MessagingConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.messaging[impl]
	return ctor, ok
}

// Clear removes all registrations. For tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.database = make(map[Implementation]DatabaseConstructor)
	r.messaging = make(map[Implementation]MessagingConstructor)
}

// globalRegistry is the default registry backend packages register into.
var globalRegistry = NewRegistry()

// RegisterDatabase registers a database constructor in the global registry.
func RegisterDatabase(impl Implementation, ctor DatabaseConstructor) {
	globalRegistry.RegisterDatabase(impl, ctor)
}

// RegisterMessaging registers a messaging constructor in the global registry.
func RegisterMessaging(impl Implementation, ctor MessagingConstructor) {
	globalRegistry.RegisterMessaging(impl, ctor)
}

// GlobalRegistry returns the global backend registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
