// Package matrix is the AMD GPU family matrix, the "source of truth" for the
// CI workflows.
//
//   - Each entry determines which families and test runners are available.
//   - Each trigger table determines which entries run by default on workflow
//     triggers.
//
// For presubmit, postsubmit and nightly family selection:
//
//   - presubmit runs the targets from the presubmit table on pull requests.
//   - postsubmit runs the targets from the presubmit and postsubmit tables on
//     pushes to long-lived branches.
//   - nightly runs targets from the presubmit, postsubmit and nightly tables.
package matrix

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const (
	TRIGGER_PRESUBMIT  = "presubmit"
	TRIGGER_POSTSUBMIT = "postsubmit"
	TRIGGER_NIGHTLY    = "nightly"

	PLATFORM_LINUX   = "linux"
	PLATFORM_WINDOWS = "windows"
)

// PlatformConfig describes one GPU family on one platform: where its tests
// run and which build variants it may be built with.
type PlatformConfig struct {
	// Family is the canonical family name passed to the build, e.g.
	// "gfx94X-dcgpu".
	Family string `json:"family"`

	// TestRunsOn is the runner label for test jobs. Empty means tests are
	// disabled for this family.
	TestRunsOn string `json:"test-runs-on"`

	// TestRunsOnKernel maps a kernel type to an alternate runner label,
	// used when a "test_runner:<kernel>" label is applied.
	TestRunsOnKernel map[string]string `json:"test-runs-on-kernel,omitempty"`

	// TestRunsOnMultiGPU is the runner label for multi-GPU test jobs.
	TestRunsOnMultiGPU string `json:"test-runs-on-multi-gpu,omitempty"`

	// BenchmarkRunsOn is the runner label for benchmark jobs.
	BenchmarkRunsOn string `json:"benchmark-runs-on,omitempty"`

	// BuildVariants lists the build variant names this family may be built
	// with on this platform. Must be non-empty.
	BuildVariants []string `json:"build_variants"`

	BypassTestsForReleases   bool `json:"bypass_tests_for_releases,omitempty"`
	SanityCheckOnlyForFamily bool `json:"sanity_check_only_for_family,omitempty"`
	ExpectFailure            bool `json:"expect_failure,omitempty"`
	ExpectPyTorchFailure     bool `json:"expect_pytorch_failure,omitempty"`
}

// Copy returns a deep copy of the PlatformConfig.
func (c *PlatformConfig) Copy() *PlatformConfig {
	rv := *c
	if c.TestRunsOnKernel != nil {
		rv.TestRunsOnKernel = make(map[string]string, len(c.TestRunsOnKernel))
		for k, v := range c.TestRunsOnKernel {
			rv.TestRunsOnKernel[k] = v
		}
	}
	if c.BuildVariants != nil {
		rv.BuildVariants = make([]string, len(c.BuildVariants))
		copy(rv.BuildVariants, c.BuildVariants)
	}
	return &rv
}

// BuildVariant describes one named build configuration on one platform.
type BuildVariant struct {
	// Label is the human-readable variant name, e.g. "release" or "asan".
	Label string `json:"build_variant_label"`

	// Suffix is appended to artifact names. Empty for the default
	// (release) variant.
	Suffix string `json:"build_variant_suffix"`

	// CMakePreset is the CMake preset the build job configures with.
	CMakePreset string `json:"build_variant_cmake_preset"`

	// ExpectFailure marks jobs built with this variant as non-blocking.
	ExpectFailure bool `json:"expect_failure,omitempty"`
}

// FamilyMatrix maps a family key to its per-platform configs.
type FamilyMatrix map[string]map[string]*PlatformConfig

// Copy returns a deep copy of the FamilyMatrix.
func (m FamilyMatrix) Copy() FamilyMatrix {
	rv := make(FamilyMatrix, len(m))
	for key, platforms := range m {
		rv[key] = make(map[string]*PlatformConfig, len(platforms))
		for platform, cfg := range platforms {
			rv[key][platform] = cfg.Copy()
		}
	}
	return rv
}

// Keys returns the sorted family keys of the matrix.
func (m FamilyMatrix) Keys() []string {
	rv := make([]string, 0, len(m))
	for key := range m {
		rv = append(rv, key)
	}
	sort.Strings(rv)
	return rv
}

// Validate returns an error if the FamilyMatrix is not valid. All problems
// are reported, not just the first.
func (m FamilyMatrix) Validate() error {
	var rv *multierror.Error
	for key, platforms := range m {
		if len(platforms) == 0 {
			rv = multierror.Append(rv, errors.Errorf("Family %q has no platform configs.", key))
		}
		for platform, cfg := range platforms {
			variants, ok := AllBuildVariants[platform]
			if !ok {
				rv = multierror.Append(rv, errors.Errorf("Family %q uses unknown platform %q.", key, platform))
				continue
			}
			if cfg.Family == "" {
				rv = multierror.Append(rv, errors.Errorf("Family %q on %s has no family name.", key, platform))
			}
			if len(cfg.BuildVariants) == 0 {
				rv = multierror.Append(rv, errors.Errorf("Family %q on %s has no build variants.", key, platform))
			}
			for _, variant := range cfg.BuildVariants {
				if _, ok := variants[variant]; !ok {
					rv = multierror.Append(rv, errors.Errorf("Family %q on %s uses unknown build variant %q.", key, platform, variant))
				}
			}
		}
	}
	return rv.ErrorOrNil()
}

// VariantsForPlatform returns the build variant table for the given platform.
// A missing platform indicates a broken registry, not bad input.
func VariantsForPlatform(platform string) (map[string]*BuildVariant, error) {
	variants, ok := AllBuildVariants[platform]
	if !ok {
		return nil, errors.Errorf("No build variants defined for platform %q.", platform)
	}
	return variants, nil
}

// ForTriggerTypes returns a merged copy of the trigger tables for the given
// trigger types, e.g. ForTriggerTypes(TRIGGER_PRESUBMIT, TRIGGER_POSTSUBMIT).
// Later tables win on key conflicts. The returned matrix never aliases the
// static tables.
func ForTriggerTypes(triggerTypes ...string) FamilyMatrix {
	tables := map[string]FamilyMatrix{
		TRIGGER_PRESUBMIT:  Presubmit,
		TRIGGER_POSTSUBMIT: Postsubmit,
		TRIGGER_NIGHTLY:    Nightly,
	}
	rv := FamilyMatrix{}
	for _, triggerType := range triggerTypes {
		table, ok := tables[triggerType]
		if !ok {
			continue
		}
		for key, platforms := range table.Copy() {
			rv[key] = platforms
		}
	}
	return rv
}

// ValidateAll validates the static trigger tables. Called once at startup;
// a failure here means the registry itself is broken.
func ValidateAll() error {
	for name, table := range map[string]FamilyMatrix{
		TRIGGER_PRESUBMIT:  Presubmit,
		TRIGGER_POSTSUBMIT: Postsubmit,
		TRIGGER_NIGHTLY:    Nightly,
	} {
		if err := table.Validate(); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Invalid %s family matrix", name))
		}
	}
	return nil
}
