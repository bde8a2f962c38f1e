// Package persistentstorage defines spec.md §6's sticky-bucketing
// contract only: PersistentStorageAdapter. Sticky bucketing itself (a
// caller-supplied store keyed by experiment + unit id, consulted so a user
// keeps their originally-assigned experiment group even after a rollout
// changes) is an explicit spec.md Non-goal beyond the contract shape, so
// only the interface is defined here; the facade calls it when a caller
// supplies one via statsig.WithPersistentStorageAdapter.
package persistentstorage

import "github.com/TimurManjosov/goflagship/internal/dynamicvalue"

// StickyValues is one experiment's sticky-bucketing record for one unit id.
type StickyValues struct {
	Value              dynamicvalue.Value
	RuleID             string
	GroupName          string
	ConfigDelegate      string
	ExplicitParameters []string
	IsExperimentActive bool
	IsExperimentGroup  bool
	Version            int64
	Time               int64
}

// Adapter is spec.md §6's PersistentStorageAdapter contract: load(key) ->
// map<config_name, StickyValues>?, save(key, config_name, StickyValues),
// delete(key, config_name). Applied after evaluation: when the caller
// passes user-persisted-values and the experiment is active, the sticky
// value overrides; when inactive, the sticky entry is deleted.
type Adapter interface {
	Load(key string) (map[string]StickyValues, bool)
	Save(key, configName string, values StickyValues)
	Delete(key, configName string)
}
