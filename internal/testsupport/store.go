package testsupport

import (
	"testing"

	"sentinel/internal/config"
	"sentinel/internal/state"
)

// MustOpenStore opens the configured state.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) state.Store {
	t.Helper()

	store, err := state.Open(cfg)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
