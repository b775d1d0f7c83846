package database

import "fmt"

// Constructor builds an adapter for a provider.
type Constructor func(Config) (*SQLAdapter, error)

// Factory maps provider names to adapter constructors. Engine packages are
// wired in by the container, which keeps this package free of drivers.
type Factory map[string]Constructor

// New creates the adapter for config.Provider.
func (f Factory) New(config Config) (Adapter, error) {
	ctor, ok := f[config.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported database provider: %s", config.Provider)
	}
	adapter, err := ctor(config)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
