package matrix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSingleDefaultCase(t *testing.T) {
	benchmarks, err := ParseBenchmarks(`["bench_a"]`)
	require.NoError(t, err)
	featureSets, err := ParseFeatureSets(`["default"]`)
	require.NoError(t, err)

	m, err := Expand(benchmarks, featureSets, Options{})
	require.NoError(t, err)
	require.Len(t, m.Include, 1)

	c := m.Include[0]
	assert.Equal(t, "bench_a", c.BenchmarkName)
	assert.Equal(t, "default", c.FeatureName)
	assert.Equal(t, "cargo bench --bench bench_a", c.Command)
	assert.Len(t, c.ID, 10)
}

func TestExpandEmptyBenchmarksIsFatal(t *testing.T) {
	_, err := Expand(nil, DefaultFeatureSets(), Options{})
	require.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExpandCrossProduct(t *testing.T) {
	benchmarks, err := ParseBenchmarks(`["a", "b"]`)
	require.NoError(t, err)
	featureSets, err := ParseFeatureSets(`[{"name": "default"}, {"name": "simd", "features": "simd"}]`)
	require.NoError(t, err)

	m, err := Expand(benchmarks, featureSets, Options{})
	require.NoError(t, err)
	require.Len(t, m.Include, 4)

	// Stable order: benchmarks outer, feature sets inner.
	assert.Equal(t, "a", m.Include[0].BenchmarkName)
	assert.Equal(t, "default", m.Include[0].FeatureName)
	assert.Equal(t, "a", m.Include[1].BenchmarkName)
	assert.Equal(t, "simd", m.Include[1].FeatureName)
	assert.Equal(t, "cargo bench --bench a --features simd", m.Include[1].Command)

	ids := make(map[string]struct{})
	for _, c := range m.Include {
		ids[c.ID] = struct{}{}
	}
	assert.Len(t, ids, 4, "distinct identity tuples must yield distinct ids")
}

func TestBuildCommandTemplateSubstitution(t *testing.T) {
	spec := BenchmarkSpec{
		Name:    "tpl",
		Command: "cargo bench --bench tpl --features {features} {no_default_features_flag}",
	}
	fs := FeatureSet{Name: "simd", Features: "simd", NoDefaultFeatures: true}

	command, err := BuildCommand(spec, fs, "")
	require.NoError(t, err)
	assert.Equal(t, "cargo bench --bench tpl --features simd --no-default-features", command)
}

func TestBuildCommandTemplateAppendsOnlyMissingFlags(t *testing.T) {
	// No placeholders: explicit flags are appended once.
	spec := BenchmarkSpec{Name: "tpl", Command: "cargo bench --bench tpl"}
	fs := FeatureSet{Name: "simd", Features: "simd", NoDefaultFeatures: true}

	command, err := BuildCommand(spec, fs, "")
	require.NoError(t, err)
	assert.Equal(t, "cargo bench --bench tpl --features simd --no-default-features", command)

	// Placeholder present: nothing gets appended twice.
	spec.Command = "cargo bench --bench tpl --features {features}"
	command, err = BuildCommand(spec, fs, "")
	require.NoError(t, err)
	assert.Equal(t, "cargo bench --bench tpl --features simd --no-default-features", command)
}

func TestBuildCommandStructuredFieldOrder(t *testing.T) {
	spec := BenchmarkSpec{
		Name:         "full",
		Bench:        "full",
		ManifestPath: "crates/core/Cargo.toml",
		Package:      "core",
		Args:         "--quiet",
	}
	fs := FeatureSet{Name: "simd", Features: "simd", NoDefaultFeatures: true}

	command, err := BuildCommand(spec, fs, "--locked")
	require.NoError(t, err)
	assert.Equal(t,
		"cargo bench --bench full --manifest-path crates/core/Cargo.toml --package core --features simd --no-default-features --quiet --locked",
		command)
}

func TestBuildCommandMissingBenchField(t *testing.T) {
	_, err := BuildCommand(BenchmarkSpec{Name: "broken"}, FeatureSet{Name: "default"}, "")
	require.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildCommandCollapsesWhitespace(t *testing.T) {
	spec := BenchmarkSpec{Name: "tpl", Command: "cargo  bench   --bench tpl {no_default_features_flag}"}
	command, err := BuildCommand(spec, FeatureSet{Name: "default"}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "cargo bench --bench tpl", command)
}

func TestBuildCommandQuotesFeatures(t *testing.T) {
	spec := BenchmarkSpec{Name: "b", Bench: "b"}
	fs := FeatureSet{Name: "multi", Features: "foo bar"}
	command, err := BuildCommand(spec, fs, "")
	require.NoError(t, err)
	assert.Equal(t, `cargo bench --bench b --features 'foo bar'`, command)
}

func TestParseBenchmarksLooseForms(t *testing.T) {
	specs, err := ParseBenchmarks(`["plain", {"name": "structured", "bench": "structured", "package": "pkg"}]`)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "plain", specs[0].Name)
	assert.Equal(t, "plain", specs[0].Bench)
	assert.Equal(t, "pkg", specs[1].Package)

	_, err = ParseBenchmarks(`[42]`)
	require.Error(t, err)

	_, err = ParseBenchmarks(`{"not": "an array"}`)
	require.Error(t, err)
}

func TestParseFeatureSetsDefaultsAndNames(t *testing.T) {
	sets, err := ParseFeatureSets("")
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "default", sets[0].Name)
	assert.Equal(t, "", sets[0].Features)
	assert.False(t, sets[0].NoDefaultFeatures)

	sets, err = ParseFeatureSets(`[]`)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "default", sets[0].Name)

	sets, err = ParseFeatureSets(`[{"features": "simd"}]`)
	require.NoError(t, err)
	assert.Equal(t, "simd", sets[0].Name, "name falls back to the feature list")

	sets, err = ParseFeatureSets(`[{}]`)
	require.NoError(t, err)
	assert.Equal(t, "default", sets[0].Name)

	sets, err = ParseFeatureSets(`["simd", "default"]`)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "simd", sets[0].Features)
	assert.Equal(t, "", sets[1].Features, `bare "default" means the crate's default features`)
}

func TestDiscoverBenchmarks(t *testing.T) {
	dir := t.TempDir()
	benches := filepath.Join(dir, "crate", "benches")
	require.NoError(t, os.MkdirAll(benches, 0755))
	for _, name := range []string{"zeta.rs", "alpha.rs", "mod.rs", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(benches, name), []byte("// bench"), 0644))
	}

	specs, err := DiscoverBenchmarks(dir, "crate")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "alpha", specs[0].Name, "discovery order is sorted")
	assert.Equal(t, "zeta", specs[1].Name)
}

func TestDiscoverBenchmarksMissingDir(t *testing.T) {
	specs, err := DiscoverBenchmarks(t.TempDir(), ".")
	require.NoError(t, err)
	assert.Empty(t, specs)
}
