package matrix

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
)

// benchAggregatorFile is the conventional module aggregator excluded
// from auto-discovery.
const benchAggregatorFile = "mod.rs"

// Options carries the expansion inputs.
type Options struct {
	RepoPath         string
	WorkingDirectory string
	AutoDiscover     bool
	CargoArgs        string
}

// DiscoverBenchmarks derives benchmark specs from benches/*.rs under
// the working directory, one spec per file stem, sorted by filename.
func DiscoverBenchmarks(repoPath, workingDirectory string) ([]BenchmarkSpec, error) {
	benchesDir := filepath.Join(repoPath, workingDirectory, "benches")
	entries, err := os.ReadDir(benchesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".rs" || name == benchAggregatorFile {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".rs"))
	}
	sort.Strings(names)

	specs := make([]BenchmarkSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, BenchmarkSpec{Name: name, Bench: name})
	}
	return specs, nil
}

// ParseBenchmarks decodes the loosely-typed benchmarks descriptor.
func ParseBenchmarks(raw string) ([]BenchmarkSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var specs []BenchmarkSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, configErrorf("benchmarks must be a JSON array: %v", err)
	}
	return specs, nil
}

// ParseFeatureSets decodes the feature-set descriptor, substituting
// the implicit default when the list is empty.
func ParseFeatureSets(raw string) ([]FeatureSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultFeatureSets(), nil
	}
	var sets []FeatureSet
	if err := json.Unmarshal([]byte(raw), &sets); err != nil {
		return nil, configErrorf("feature sets must be a JSON array: %v", err)
	}
	if len(sets) == 0 {
		return DefaultFeatureSets(), nil
	}
	return sets, nil
}

// BuildCommand synthesizes the fully expanded command string for one
// (benchmark, feature set) pair. Template commands get literal
// placeholder substitution; the structured fallback assembles a
// cargo bench invocation with shellquote-escaped values.
func BuildCommand(spec BenchmarkSpec, fs FeatureSet, cargoArgs string) (string, error) {
	features := strings.TrimSpace(fs.Features)
	noDefaultFlag := ""
	if fs.NoDefaultFeatures {
		noDefaultFlag = "--no-default-features"
	}

	var command string
	if spec.Command != "" {
		command = spec.Command
		command = strings.ReplaceAll(command, "{features}", features)
		command = strings.ReplaceAll(command, "{no_default_features_flag}", noDefaultFlag)
		// Only append explicit flags when the template had no
		// placeholder for them, so templates never get duplicates.
		if !strings.Contains(spec.Command, "{features}") && features != "" {
			command += " --features " + shellquote.Join(features)
		}
		if !strings.Contains(spec.Command, "{no_default_features_flag}") && fs.NoDefaultFeatures {
			command += " --no-default-features"
		}
	} else {
		if spec.Bench == "" {
			return "", configErrorf("benchmark spec %q is missing 'bench'", spec.DisplayName())
		}
		parts := []string{"cargo", "bench", "--bench", shellquote.Join(spec.Bench)}
		if spec.ManifestPath != "" {
			parts = append(parts, "--manifest-path", shellquote.Join(spec.ManifestPath))
		}
		if spec.Package != "" {
			parts = append(parts, "--package", shellquote.Join(spec.Package))
		}
		if features != "" {
			parts = append(parts, "--features", shellquote.Join(features))
		}
		if fs.NoDefaultFeatures {
			parts = append(parts, "--no-default-features")
		}
		if spec.Args != "" {
			parts = append(parts, spec.Args)
		}
		command = strings.Join(parts, " ")
	}

	if extra := strings.TrimSpace(cargoArgs); extra != "" {
		command += " " + extra
	}

	// Collapse whitespace so identical inputs always produce an
	// identical command string.
	return strings.Join(strings.Fields(command), " "), nil
}

// Expand produces one Case per (benchmark x feature set) pair. An
// empty benchmark list, after optional auto-discovery, is a fatal
// configuration error: the matrix is never silently empty.
func Expand(benchmarks []BenchmarkSpec, featureSets []FeatureSet, opts Options) (*Matrix, error) {
	if len(benchmarks) == 0 && opts.AutoDiscover {
		discovered, err := DiscoverBenchmarks(opts.RepoPath, opts.WorkingDirectory)
		if err != nil {
			return nil, err
		}
		benchmarks = discovered
	}
	if len(benchmarks) == 0 {
		return nil, configErrorf("no benchmarks configured: provide a benchmarks descriptor or enable auto-discovery with benches/*.rs")
	}
	if len(featureSets) == 0 {
		featureSets = DefaultFeatureSets()
	}

	m := &Matrix{Include: make([]Case, 0, len(benchmarks)*len(featureSets))}
	for _, bench := range benchmarks {
		name := bench.DisplayName()
		for _, fs := range featureSets {
			command, err := BuildCommand(bench, fs, opts.CargoArgs)
			if err != nil {
				return nil, err
			}
			m.Include = append(m.Include, Case{
				ID:            CaseID(name, fs.Name, fs.Features),
				BenchmarkName: name,
				FeatureName:   fs.Name,
				Command:       command,
			})
		}
	}
	return m, nil
}
