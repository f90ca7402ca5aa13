package manager

import (
	"fmt"
	"sync"

	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// Availability is the memoized result of probing for a native backend.
type Availability int

const (
	// AvailabilityUnknown means the probe has not run yet.
	AvailabilityUnknown Availability = iota
	// AvailabilityPresent means the native backend is compiled in.
	AvailabilityPresent
	// AvailabilityAbsent means the native backend is not compiled in.
	AvailabilityAbsent
)

// Factory constructs capability managers from resource configurations.
//
// It honors an explicit implementation choice, degrades a "library" request
// to the CLI backend when the native driver is absent and auto_fallback
// permits, and fails with a ConfigurationError otherwise. The one-time "is
// the native backend present" probe is memoized per resource class for the
// factory's lifetime; the cache is the only state shared across the managers
// a factory hands out, and a duplicate probe during a racing first call is
// harmless.
type Factory struct {
	registry *Registry

	mu        sync.Mutex
	dbAvail   Availability
	msgAvail  Availability
}

// NewFactory creates a factory over an explicit registry. Tests use this to
// control exactly which backends exist.
func NewFactory(registry *Registry) *Factory {
	return &Factory{registry: registry}
}

// DefaultFactory returns the process-wide factory over the global registry.
func DefaultFactory() *Factory {
	return defaultFactory
}

var defaultFactory = NewFactory(globalRegistry)

// CreateDatabaseManager constructs a DatabaseManager for the configuration.
// The logger is optional; pass nil to construct a silent manager.
func (f *Factory) CreateDatabaseManager(cfg ResourceConfig, log *logger.Logger) (DatabaseManager, error) {
	kind := rescapabilities.DB2

	switch impl := cfg.ImplementationOrDefault(); impl {
	case ImplementationCLI:
		ctor, ok := f.registry.DatabaseConstructorFor(ImplementationCLI)
		if !ok {
			return nil, NewConfigurationError(kind, "implementation",
				"cli database backend is not registered")
		}
		log.Info("using %s command-line backend", kind)
		return ctor(cfg, log), nil

	case ImplementationLibrary:
		if f.databaseLibraryAvailable() {
			ctor, _ := f.registry.DatabaseConstructorFor(ImplementationLibrary)
			log.Info("using %s native-client backend (%s)", kind, rescapabilities.MustGet(kind).NativeDriver)
			return ctor(cfg, log), nil
		}
		if cfg.AutoFallbackEnabled() {
			ctor, ok := f.registry.DatabaseConstructorFor(ImplementationCLI)
			if !ok {
				return nil, NewConfigurationError(kind, "implementation",
					"cli database backend is not registered")
			}
			log.Warn("%s native-client backend unavailable (%s not compiled in), falling back to command-line backend",
				kind, rescapabilities.MustGet(kind).NativeDriver)
			return ctor(cfg, log), nil
		}
		return nil, NewConfigurationError(kind, "implementation",
			fmt.Sprintf("library implementation requested but %s is not available and auto_fallback is disabled",
				rescapabilities.MustGet(kind).NativeDriver))

	default:
		return nil, NewConfigurationError(kind, "implementation",
			fmt.Sprintf("unknown implementation %q: valid options are %q or %q",
				impl, ImplementationCLI, ImplementationLibrary))
	}
}

// CreateMessagingManager constructs a MessagingManager for the configuration.
// The logger is optional; pass nil to construct a silent manager.
func (f *Factory) CreateMessagingManager(cfg ResourceConfig, log *logger.Logger) (MessagingManager, error) {
	kind := rescapabilities.IBMMQ

	switch impl := cfg.ImplementationOrDefault(); impl {
	case ImplementationCLI:
		ctor, ok := f.registry.MessagingConstructorFor(ImplementationCLI)
		if !ok {
			return nil, NewConfigurationError(kind, "implementation",
				"cli messaging backend is not registered")
		}
		log.Info("using %s command-line backend", kind)
		return ctor(cfg, log), nil

	case ImplementationLibrary:
		if f.messagingLibraryAvailable() {
			ctor, _ := f.registry.MessagingConstructorFor(ImplementationLibrary)
			log.Info("using %s native-client backend (%s)", kind, rescapabilities.MustGet(kind).NativeDriver)
			return ctor(cfg, log), nil
		}
		if cfg.AutoFallbackEnabled() {
			ctor, ok := f.registry.MessagingConstructorFor(ImplementationCLI)
			if !ok {
				return nil, NewConfigurationError(kind, "implementation",
					"cli messaging backend is not registered")
			}
			log.Warn("%s native-client backend unavailable (%s not compiled in), falling back to command-line backend",
				kind, rescapabilities.MustGet(kind).NativeDriver)
			return ctor(cfg, log), nil
		}
		return nil, NewConfigurationError(kind, "implementation",
			fmt.Sprintf("library implementation requested but %s is not available and auto_fallback is disabled",
				rescapabilities.MustGet(kind).NativeDriver))

	default:
		return nil, NewConfigurationError(kind, "implementation",
			fmt.Sprintf("unknown implementation %q: valid options are %q or %q",
				impl, ImplementationCLI, ImplementationLibrary))
	}
}

// databaseLibraryAvailable memoizes the native database backend probe.
func (f *Factory) databaseLibraryAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dbAvail == AvailabilityUnknown {
		if _, ok := f.registry.DatabaseConstructorFor(ImplementationLibrary); ok {
			f.dbAvail = AvailabilityPresent
		} else {
			f.dbAvail = AvailabilityAbsent
		}
	}
	return f.dbAvail == AvailabilityPresent
}

// messagingLibraryAvailable memoizes the native messaging backend probe.
func (f *Factory) messagingLibraryAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgAvail == AvailabilityUnknown {
		if _, ok := f.registry.MessagingConstructorFor(ImplementationLibrary); ok {
			f.msgAvail = AvailabilityPresent
		} else {
			f.msgAvail = AvailabilityAbsent
		}
	}
	return f.msgAvail == AvailabilityPresent
}

// ResetAvailabilityCache forgets the memoized probes so the next create call
// re-probes. For tests and post-install re-probing.
func (f *Factory) ResetAvailabilityCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dbAvail = AvailabilityUnknown
	f.msgAvail = AvailabilityUnknown
}

// ImplementationSet reports which implementations are usable for one
// capability class.
type ImplementationSet struct {
	CLI     bool `json:"cli"`
	Library bool `json:"library"`
}

// GetAvailableImplementations reports, per capability class, whether the cli
// and library strategies are usable. The call is side-effect-free with
// respect to the availability cache: an unknown state is answered from a
// fresh registry lookup without memoizing it.
func (f *Factory) GetAvailableImplementations() map[rescapabilities.ResourceClass]ImplementationSet {
	f.mu.Lock()
	dbAvail, msgAvail := f.dbAvail, f.msgAvail
	f.mu.Unlock()

	dbLib := dbAvail == AvailabilityPresent
	if dbAvail == AvailabilityUnknown {
		_, dbLib = f.registry.DatabaseConstructorFor(ImplementationLibrary)
	}
	msgLib := msgAvail == AvailabilityPresent
	if msgAvail == AvailabilityUnknown {
		_, msgLib = f.registry.MessagingConstructorFor(ImplementationLibrary)
	}

	return map[rescapabilities.ResourceClass]ImplementationSet{
		rescapabilities.ClassDatabase:  {CLI: true, Library: dbLib},
		rescapabilities.ClassMessaging: {CLI: true, Library: msgLib},
	}
}

// CreateDatabaseManager constructs a DatabaseManager using the default factory.
func CreateDatabaseManager(cfg ResourceConfig, log *logger.Logger) (DatabaseManager, error) {
	return defaultFactory.CreateDatabaseManager(cfg, log)
}

// CreateMessagingManager constructs a MessagingManager using the default factory.
func CreateMessagingManager(cfg ResourceConfig, log *logger.Logger) (MessagingManager, error) {
	return defaultFactory.CreateMessagingManager(cfg, log)
}

// ResetAvailabilityCache resets the default factory's memoized probes.
func ResetAvailabilityCache() {
	defaultFactory.ResetAvailabilityCache()
}

// GetAvailableImplementations reports availability from the default factory.
func GetAvailableImplementations() map[rescapabilities.ResourceClass]ImplementationSet {
	return defaultFactory.GetAvailableImplementations()
}
