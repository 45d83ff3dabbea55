// Package resolve turns a CI trigger into the concrete set of build/test
// jobs to run: which GPU families, which build variants, and which test
// suites, per platform.
//
// Defaults are driven by the trigger tables in the matrix package; explicit
// opt-ins come from PR labels or workflow_dispatch inputs and are validated
// against the full registry before being trusted.
package resolve

import (
	"strings"

	"github.com/pkg/errors"

	"go.therock.dev/infra/configure_ci/go/matrix"
	"go.therock.dev/infra/go/sklog"
)

// Python's string.punctuation; workflow_dispatch family input is sanitized by
// replacing each of these with a space before splitting.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Request carries everything one resolution run needs. A fresh Request is
// built per process invocation; resolution itself is a pure function of it.
type Request struct {
	Trigger    Trigger
	BranchName string
	Platform   string

	// PRLabels are the label names applied to the pull request.
	PRLabels []string

	// DispatchFamilies is the free-form family selection string from
	// workflow_dispatch, e.g. ",gfx94X ,|.gfx1201".
	DispatchFamilies string

	// DispatchTestLabels is the comma-separated test label string from
	// workflow_dispatch, e.g. "test:rocprim, test:hipcub".
	DispatchTestLabels string

	// ExtraLabelOptions are additional label options supplied alongside a
	// workflow_dispatch, honored by the kernel runner override scan.
	ExtraLabelOptions []string

	// BuildVariant is the single build variant this run expands, e.g.
	// "release" or "asan".
	BuildVariant string

	// MultiArch selects the grouped expansion mode: one job per build
	// variant covering many families, instead of one job per family.
	MultiArch bool

	// Overrides replace static test runner labels, normally sourced from
	// the CI organization variable.
	Overrides matrix.RunnerOverrides
}

// Result is the resolved job matrix for one platform. Exactly one of Jobs
// and MultiArch is populated, depending on Request.MultiArch.
type Result struct {
	Jobs      []*JobRow
	MultiArch []*MultiArchGroup
	TestNames []string
}

// Generate resolves the job matrix and test list for one platform.
func Generate(req *Request) (*Result, error) {
	isLongLived := IsLongLivedBranch(req.BranchName)
	sklog.Infof("Branch %q is considered a long-lived branch: %t", req.BranchName, isLongLived)

	active := activeTriggerTypes(req.Trigger, isLongLived)
	if len(active) == 0 && req.Trigger != TRIGGER_WORKFLOW_DISPATCH {
		// Production workflows only trigger on pushes, PRs,
		// workflow_dispatch, or schedule. Reaching this indicates an
		// unexpected trigger, not bad user input.
		return nil, errors.Errorf("No trigger types determined for trigger=%q branch=%q.", req.Trigger, req.BranchName)
	}
	lookupTypes := lookupTriggerTypes(req.Trigger, active)
	sklog.Infof("Using family matrix for trigger types: %v", lookupTypes)
	lookup := matrix.ForTriggerTypes(lookupTypes...).WithRunnerOverrides(req.Overrides)

	targetNames, testNames := selectNames(req, lookup)
	targetNames = dedup(targetNames)
	testNames = dedup(testNames)

	variants, err := matrix.VariantsForPlatform(req.Platform)
	if err != nil {
		return nil, err
	}

	rv := &Result{TestNames: testNames}
	if req.MultiArch {
		rv.MultiArch = expandMultiArch(targetNames, lookup, req.Platform, variants, req.BuildVariant)
		sklog.Infof("Generated multi-arch build matrix for %s: %+v", req.Platform, rv.MultiArch)
	} else {
		rv.Jobs = expandStandard(targetNames, lookup, req.Platform, variants, req.BuildVariant, req.extraLabels())
		sklog.Infof("Generated build matrix for %s: %+v", req.Platform, rv.Jobs)
	}
	sklog.Infof("Generated test list for %s: %v", req.Platform, rv.TestNames)
	return rv, nil
}

// extraLabels returns the labels consulted by the kernel runner override
// scan: PR labels plus any workflow_dispatch label options.
func (req *Request) extraLabels() []string {
	rv := make([]string, 0, len(req.PRLabels)+len(req.ExtraLabelOptions))
	rv = append(rv, req.PRLabels...)
	rv = append(rv, req.ExtraLabelOptions...)
	return rv
}

// selectNames computes the candidate family key list and test name list for
// the request's trigger.
func selectNames(req *Request, lookup matrix.FamilyMatrix) ([]string, []string) {
	var targetNames, testNames []string

	switch req.Trigger {
	case TRIGGER_WORKFLOW_DISPATCH:
		sklog.Infof("[WORKFLOW_DISPATCH] Generating build matrix for %s", req.Platform)
		requested := tokenizeFamilies(req.DispatchFamilies)
		targetNames = append(targetNames, filterKnownNames(requested, "target", lookup)...)

		var requestedTests []string
		for _, label := range strings.Split(req.DispatchTestLabels, ",") {
			label = strings.TrimSpace(label)
			if strings.Contains(label, "test:") {
				testName := afterColon(label)
				sklog.Infof("    Workflow dispatch test label %q -> test: %s", label, testName)
				requestedTests = append(requestedTests, testName)
			}
		}
		testNames = append(testNames, filterKnownNames(requestedTests, "test", nil)...)

	case TRIGGER_PULL_REQUEST:
		sklog.Infof("[PULL_REQUEST] Generating build matrix for %s", req.Platform)

		// Presubmit targets are always included; labels may opt into
		// more.
		targetNames = append(targetNames, matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT).Keys()...)

		var requestedTargets, requestedTests []string
		sklog.Infof("  Processing %d PR label(s): %v", len(req.PRLabels), req.PRLabels)
		skipCI := false
		for _, label := range req.PRLabels {
			for _, match := range classifyLabel(label) {
				switch match.kind {
				case labelFamilyOptIn:
					sklog.Infof("    Label %q matched 'gfx*' pattern -> target: %s", label, match.value)
					requestedTargets = append(requestedTargets, match.value)
				case labelTestOptIn:
					sklog.Infof("    Label %q matched 'test:*' pattern -> test: %s", label, match.value)
					requestedTests = append(requestedTests, match.value)
				case labelSkipCI:
					sklog.Info("    Label 'skip-ci' detected -> skipping all builds and tests")
					skipCI = true
				case labelRunAllArchs:
					sklog.Info("    Label 'run-all-archs-ci' detected -> enabling all architectures")
					targetNames = matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT, matrix.TRIGGER_NIGHTLY).Keys()
				}
			}
			// skip-ci short-circuits the label scan and discards
			// everything selected so far, including presubmit
			// defaults and earlier label opt-ins.
			if skipCI {
				return nil, nil
			}
		}
		targetNames = append(targetNames, filterKnownNames(requestedTargets, "target", lookup)...)
		testNames = append(testNames, filterKnownNames(requestedTests, "test", nil)...)

	case TRIGGER_PUSH:
		if IsLongLivedBranch(req.BranchName) {
			sklog.Infof("[PUSH - %s] Generating build matrix for %s", strings.ToUpper(req.BranchName), req.Platform)
			targetNames = append(targetNames, matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT).Keys()...)
		} else {
			sklog.Infof("[PUSH - %s] Generating build matrix for %s", req.BranchName, req.Platform)
			targetNames = append(targetNames, matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT).Keys()...)
		}

	case TRIGGER_SCHEDULE:
		sklog.Infof("[SCHEDULE] Generating build matrix for %s", req.Platform)
		// Nightly runs sweep every known family.
		targetNames = append(targetNames, matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT, matrix.TRIGGER_NIGHTLY).Keys()...)
	}

	return targetNames, testNames
}

// tokenizeFamilies splits the free-form workflow_dispatch family string into
// candidate names, e.g. ",gfx94X ,|.gfx1201" -> ["gfx94X", "gfx1201"].
func tokenizeFamilies(input string) []string {
	sklog.Debugf("  Raw input GPU targets string: %q", input)
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, input)
	return strings.Fields(sanitized)
}

// filterKnownNames filters a requested name list down to known names. This is
// the single choke point through which all user- and label-supplied names
// pass before being trusted. Names are lowercased; unknown names are dropped
// with a warning, never an error.
func filterKnownNames(requestedNames []string, nameType string, targetMatrix matrix.FamilyMatrix) []string {
	var rv []string
	for _, name := range requestedNames {
		// Standardize on lowercase names to absorb user-input errors.
		name = strings.ToLower(name)
		known := false
		switch nameType {
		case "target":
			_, known = targetMatrix[name]
		case "test":
			known = matrix.TestMatrix[name]
		default:
			sklog.Warningf("Unknown name type %q.", nameType)
			return rv
		}
		if known {
			rv = append(rv, name)
		} else {
			sklog.Warningf("Unknown %s name %q not found in matrix.", nameType, name)
		}
	}
	return rv
}

// dedup returns the list with duplicates removed, keeping first-seen order.
func dedup(names []string) []string {
	seen := make(map[string]bool, len(names))
	rv := []string{}
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			rv = append(rv, name)
		}
	}
	return rv
}
