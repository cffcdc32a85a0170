package health

import (
	"context"
	"errors"
	"time"

	"sta-hq/verdict/pkg/registry"
)

// RegistryInfo describes the snapshot currently serving evaluations.
type RegistryInfo struct {
	PackID      string    `json:"pack_id,omitempty"`
	PackVersion string    `json:"pack_version,omitempty"`
	Version     string    `json:"version"`
	Rules       int       `json:"rules"`
	Signals     int       `json:"signals"`
	Source      string    `json:"source,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitzero"`
}

// RegistryInfoFunc reports the active snapshot.
type RegistryInfoFunc func() RegistryInfo

// StoreInfo returns a RegistryInfoFunc reading store.
func StoreInfo(store *registry.Store) RegistryInfoFunc {
	return func() RegistryInfo {
		snap := store.Current()
		pack := snap.Pack()
		return RegistryInfo{
			PackID:      pack.ID,
			PackVersion: pack.Version,
			Version:     snap.Version(),
			Rules:       snap.Len(),
			Signals:     len(snap.SignalIDs()),
			Source:      snap.Source(),
			LoadedAt:    snap.LoadedAt(),
		}
	}
}

// errNoRules is reported while the store holds the empty snapshot.
var errNoRules = errors.New("registry has no rules loaded")

// RegistryCheck is healthy once the store holds at least one rule.
func RegistryCheck(store *registry.Store) CheckFunc {
	return func(ctx context.Context) error {
		if store.Current().Len() == 0 {
			return errNoRules
		}
		return nil
	}
}
