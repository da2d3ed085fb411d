package matrix

import (
	"encoding/json"
	"fmt"
)

// ConfigurationError indicates malformed or empty matrix input. It is
// fatal before any execution starts.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// BenchmarkSpec describes one benchmark. Descriptors arrive either as
// a bare string (the bench name) or as a structured object; both
// decode into this canonical form.
type BenchmarkSpec struct {
	Name         string `json:"name"`
	Command      string `json:"command,omitempty"`
	Bench        string `json:"bench,omitempty"`
	Package      string `json:"package,omitempty"`
	ManifestPath string `json:"manifest_path,omitempty"`
	Args         string `json:"args,omitempty"`
}

func (b *BenchmarkSpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = BenchmarkSpec{Name: s, Bench: s}
		return nil
	}

	type plain BenchmarkSpec
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return configErrorf("benchmark entries must be objects or strings: %v", err)
	}
	*b = BenchmarkSpec(p)
	return nil
}

// DisplayName resolves the name used in case identity, falling back
// through the bench target to a generic label.
func (b BenchmarkSpec) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	if b.Bench != "" {
		return b.Bench
	}
	return "benchmark"
}

// FeatureSet describes one cargo feature combination. A bare string
// is both the name and the feature list.
type FeatureSet struct {
	Name              string `json:"name"`
	Features          string `json:"features"`
	NoDefaultFeatures bool   `json:"no_default_features"`
}

func (f *FeatureSet) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "default" {
			// The bare "default" set means the crate's default
			// features, not a feature literally named default.
			*f = FeatureSet{Name: s}
		} else {
			*f = FeatureSet{Name: s, Features: s}
		}
		return nil
	}

	type plain FeatureSet
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return configErrorf("feature set entries must be objects or strings: %v", err)
	}
	if p.Name == "" {
		if p.Features != "" {
			p.Name = p.Features
		} else {
			p.Name = "default"
		}
	}
	*f = FeatureSet(p)
	return nil
}

// DefaultFeatureSets is the implicit single feature set used when the
// configuration supplies none.
func DefaultFeatureSets() []FeatureSet {
	return []FeatureSet{{Name: "default"}}
}

// Case is one executable (benchmark, feature set) unit.
type Case struct {
	ID            string `json:"id"`
	BenchmarkName string `json:"benchmark_name"`
	FeatureName   string `json:"feature_name"`
	Command       string `json:"command"`
}

// Matrix is the expansion output handed to CI and to the batch
// runner.
type Matrix struct {
	Include []Case `json:"include"`
}
