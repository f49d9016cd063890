package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/tablekit/pkg/core"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(*slog.Logger) Adapter

type registration struct {
	name    string
	factory Factory
}

var (
	registryMu sync.RWMutex
	// registry maps every accepted name, aliases included, to its registration.
	registry = make(map[string]registration)
)

// Register adds an adapter factory under name and any aliases.
// Adapter packages call it from init(). Names are case-insensitive.
func Register(name string, factory Factory, aliases ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	reg := registration{name: strings.ToLower(name), factory: factory}
	registry[reg.name] = reg
	for _, alias := range aliases {
		registry[strings.ToLower(alias)] = reg
	}
}

func lookup(name string) (registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return reg, ok
}

// Get retrieves an adapter factory by name or alias.
func Get(name string) (Factory, bool) {
	reg, ok := lookup(name)
	return reg.factory, ok
}

// Canonical resolves an alias ("mariadb") to the name its adapter was
// registered under ("mysql").
func Canonical(name string) (string, bool) {
	reg, ok := lookup(name)
	return reg.name, ok
}

// NewAdapter creates a new adapter instance based on config type.
// The logger parameter is passed to the adapter constructor (nil uses discard logger).
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns every accepted adapter name, aliases included, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := lookup(name)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in tablekit.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
