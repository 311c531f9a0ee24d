package config

import "dario.cat/mergo"

// mergeSection merges a user-provided veritas.yaml section onto a copy of
// the built-in default, with non-zero user fields overriding the default.
// Used for every optional top-level section (scheduler, ranking, rpc,
// providers, retention, calibration, defaults, extraction) — replacing the teacher's bespoke
// per-registry merge functions now that there's no built-in/user registry
// split, just one default struct merged with one user-provided override.
func mergeSection[T any](base *T, override *T) (*T, error) {
	if override == nil {
		return base, nil
	}
	if err := mergo.Merge(base, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return base, nil
}
