package rescapabilities

import "strings"

// ResourceKind is the canonical identifier for an external resource technology
// supported by commongo. Use these constants to look up capability information.
type ResourceKind string

const (
	// DB2 is the IBM Db2 relational database.
	DB2 ResourceKind = "db2"

	// IBMMQ is the IBM MQ message broker.
	IBMMQ ResourceKind = "ibmmq"
)

// ResourceClass groups resource kinds by the capability interface they satisfy.
type ResourceClass string

const (
	ClassDatabase  ResourceClass = "database"
	ClassMessaging ResourceClass = "messaging"
)

// Capability describes a resource technology in a way the factory and the
// backends can consume uniformly: which external tools the command-line
// strategy drives, which native driver the library strategy needs, and the
// system objects used for connection testing and metadata queries.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "IBM Db2".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see ResourceKind constants).
	ID ResourceKind `json:"id"`

	// Class is the capability interface this resource is accessed through.
	Class ResourceClass `json:"class"`

	// CLITools are the external executables the command-line backend invokes,
	// keyed by role ("shell", "put", "get").
	CLITools map[string]string `json:"cliTools"`

	// NativeDriver names the Go module providing the library backend.
	NativeDriver string `json:"nativeDriver"`

	// SystemObjects are well-known catalog or dummy objects used by probes
	// ("dummy", "columns", "instance").
	SystemObjects map[string]string `json:"systemObjects,omitempty"`

	// DefaultPort is the conventional listener port.
	DefaultPort int `json:"defaultPort"`

	// Common aliases (directory names, config labels) that map to this kind.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical resource kind.
var All = map[ResourceKind]Capability{
	DB2: {
		Name:  "IBM Db2",
		ID:    DB2,
		Class: ClassDatabase,
		CLITools: map[string]string{
			"shell": "db2",
		},
		NativeDriver: "github.com/ibmdb/go_ibm_db",
		SystemObjects: map[string]string{
			"dummy":    "SYSIBM.SYSDUMMY1",
			"columns":  "SYSCAT.COLUMNS",
			"instance": "SYSIBMADM.ENV_INST_INFO",
		},
		DefaultPort: 50000,
		Aliases:     []string{"ibmdb2", "db2luw"},
	},
	IBMMQ: {
		Name:  "IBM MQ",
		ID:    IBMMQ,
		Class: ClassMessaging,
		CLITools: map[string]string{
			"shell": "runmqsc",
			"put":   "amqsput",
			"get":   "amqsget",
		},
		NativeDriver: "github.com/ibm-messaging/mq-golang/v5",
		DefaultPort:  1414,
		Aliases:      []string{"mq", "wmq", "websphere-mq"},
	},
}

// Get returns the capability metadata for a resource kind.
func Get(kind ResourceKind) (Capability, bool) {
	cap, ok := All[kind]
	return cap, ok
}

// MustGet returns the capability metadata for a resource kind and panics if
// the kind is unknown. Use only with the package constants.
func MustGet(kind ResourceKind) Capability {
	cap, ok := All[kind]
	if !ok {
		panic("rescapabilities: unknown resource kind: " + string(kind))
	}
	return cap
}

// ParseID resolves a canonical ID or alias (case-insensitive) to a ResourceKind.
func ParseID(name string) (ResourceKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "", false
	}

	if _, ok := All[ResourceKind(normalized)]; ok {
		return ResourceKind(normalized), true
	}

	for kind, cap := range All {
		for _, alias := range cap.Aliases {
			if normalized == alias {
				return kind, true
			}
		}
	}

	return "", false
}

// KindsForClass returns the resource kinds belonging to a capability class.
func KindsForClass(class ResourceClass) []ResourceKind {
	var kinds []ResourceKind
	for kind, cap := range All {
		if cap.Class == class {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
