package specs

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName          = errors.New("specs: spec name must not be empty")
	ErrInvalidPercentage  = errors.New("specs: rule pass_percentage must be within 0..100")
	ErrMissingCondition   = errors.New("specs: rule references a condition id absent from the condition map")
)

// Validate checks structural invariants on a freshly parsed Data bundle,
// following this module's sentinel-error, per-field-check validation style.
func Validate(d *Data) error {
	for name, spec := range d.FeatureGates {
		if err := validateSpec(d, name, spec); err != nil {
			return err
		}
	}
	for name, spec := range d.DynamicConfigs {
		if err := validateSpec(d, name, spec); err != nil {
			return err
		}
	}
	for name, spec := range d.LayerConfigs {
		if err := validateSpec(d, name, spec); err != nil {
			return err
		}
	}
	return nil
}

func validateSpec(d *Data, name string, spec Spec) error {
	if name == "" {
		return ErrEmptyName
	}
	for _, r := range spec.Rules {
		if r.PassPercentage < 0 || r.PassPercentage > 100 {
			return fmt.Errorf("%w: spec %q rule %q has %.2f", ErrInvalidPercentage, name, r.ID, r.PassPercentage)
		}
		for _, cid := range r.ConditionIDs {
			if _, ok := d.ConditionMap[cid]; !ok {
				return fmt.Errorf("%w: spec %q rule %q references %q", ErrMissingCondition, name, r.ID, cid)
			}
		}
	}
	return nil
}
