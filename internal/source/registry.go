package source

import (
	"fmt"
	"sort"

	"sentinel/internal/config"
	"sentinel/internal/services"
)

// Constructor builds a Source from its configuration section.
type Constructor func(cfg config.Source) (Source, error)

var registry = map[string]Constructor{}

// Register adds a source constructor under the given provider name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the constructor registered for name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "source", "lookup", fmt.Sprintf("unknown source provider %q", name), nil)
	}
	return ctor, nil
}

// New builds the source selected by cfg.Provider.
func New(cfg config.Source) (Source, error) {
	ctor, err := Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return ctor(cfg)
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
