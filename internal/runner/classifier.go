package runner

import "strings"

// ToolVersionMismatchReason is the dedicated diagnostic for a
// profiler runner/crate incompatibility.
const ToolVersionMismatchReason = "iai-callgrind version mismatch"

// Verdict is the interpretation of a failed command's output.
type Verdict struct {
	Missing       bool
	MissingReason string
	// ErrorReason is set only for recognized error specializations;
	// the generic execution failure leaves it empty.
	ErrorReason string
}

// OutputClassifier turns captured process output into a Verdict. The
// matching rules are best-effort and evolve independently of the run
// protocol; an unmatched failure stays a generic execution error.
type OutputClassifier interface {
	ClassifyFailure(output string) Verdict
}

// CargoClassifier recognizes cargo and iai-callgrind diagnostics.
type CargoClassifier struct{}

var missingBenchPatterns = []string{
	"no bench target named",
	"could not find bench",
	"no benchmark target named",
}

var missingFeaturePatterns = []string{
	"does not have the feature",
	"does not have these features",
	"does not contain this feature",
	"does not contain these features",
	"unknown feature",
	"no such feature",
}

func (CargoClassifier) ClassifyFailure(output string) Verdict {
	lowered := strings.ToLower(output)

	for _, pattern := range missingBenchPatterns {
		if strings.Contains(lowered, pattern) {
			return Verdict{Missing: true, MissingReason: "bench target not found"}
		}
	}

	missingFeature := false
	for _, pattern := range missingFeaturePatterns {
		if strings.Contains(lowered, pattern) {
			missingFeature = true
			break
		}
	}
	// Newer cargo phrases it as: feature `X` ... is not defined.
	if strings.Contains(lowered, "feature `") && strings.Contains(lowered, " is not defined") {
		missingFeature = true
	}
	if missingFeature {
		return Verdict{Missing: true, MissingReason: "feature not available"}
	}

	if strings.Contains(lowered, "iai-callgrind-runner") && strings.Contains(lowered, "is newer than iai-callgrind") {
		return Verdict{ErrorReason: ToolVersionMismatchReason}
	}

	return Verdict{}
}
