package resolve

import (
	"encoding/json"
	"strings"

	"go.therock.dev/infra/configure_ci/go/matrix"
	"go.therock.dev/infra/go/sklog"
)

// JobRow is one resolved build/test job: a family's platform config merged
// with the requested build variant's fields. Rows are produced fresh per
// resolution run and serialized straight into the workflow job matrix.
type JobRow struct {
	Family                   string            `json:"family"`
	TestRunsOn               string            `json:"test-runs-on"`
	TestRunsOnKernel         map[string]string `json:"test-runs-on-kernel,omitempty"`
	TestRunsOnMultiGPU       string            `json:"test-runs-on-multi-gpu,omitempty"`
	BenchmarkRunsOn          string            `json:"benchmark-runs-on,omitempty"`
	BypassTestsForReleases   bool              `json:"bypass_tests_for_releases,omitempty"`
	SanityCheckOnlyForFamily bool              `json:"sanity_check_only_for_family,omitempty"`
	ExpectFailure            bool              `json:"expect_failure"`
	ExpectPyTorchFailure     bool              `json:"expect_pytorch_failure,omitempty"`
	BuildVariantLabel        string            `json:"build_variant_label"`
	BuildVariantSuffix       string            `json:"build_variant_suffix"`
	BuildVariantCMakePreset  string            `json:"build_variant_cmake_preset"`

	// ArtifactGroup buckets this job's build outputs for later
	// aggregation, formatted as "<family>[-<variant suffix>]".
	ArtifactGroup string `json:"artifact_group"`
}

// MultiArchFamily is one family's entry inside a MultiArchGroup.
type MultiArchFamily struct {
	Family                   string `json:"amdgpu_family"`
	TestRunsOn               string `json:"test-runs-on"`
	SanityCheckOnlyForFamily bool   `json:"sanity_check_only_for_family"`
}

// MultiArchGroup is one resolved job covering every selected family that
// supports a build variant. The multi-arch pipeline runs generic stages once
// per variant and matrixes over families only for per-arch stages.
type MultiArchGroup struct {
	// MatrixPerFamilyJSON is a JSON array of MultiArchFamily objects, used
	// by the workflow for per-architecture job matrix expansion.
	MatrixPerFamilyJSON string `json:"matrix_per_family_json"`

	// DistFamilies is the semicolon-separated family names, passed to the
	// build as the dist targets list.
	DistFamilies string `json:"dist_amdgpu_families"`

	// ArtifactGroup is "multi-arch-<suffix>", where suffix defaults to
	// "release" when the variant has none.
	ArtifactGroup string `json:"artifact_group"`

	BuildVariantLabel       string `json:"build_variant_label"`
	BuildVariantSuffix      string `json:"build_variant_suffix"`
	BuildVariantCMakePreset string `json:"build_variant_cmake_preset"`
	ExpectFailure           bool   `json:"expect_failure"`
}

// expandStandard expands the selected family keys into one JobRow per
// (family, allowed variant matching the requested variant) on the given
// platform. Families with no entry for the platform are silently skipped.
func expandStandard(targetNames []string, lookup matrix.FamilyMatrix, platform string, variants map[string]*matrix.BuildVariant, requestedVariant string, extraLabels []string) []*JobRow {
	rv := []*JobRow{}
	for _, targetName := range targetNames {
		cfg, ok := lookup[targetName][platform]
		if !ok {
			continue
		}
		testRunsOn, testRunsOnMultiGPU := applyKernelRunnerOverride(cfg, extraLabels)
		for _, variantName := range cfg.BuildVariants {
			// Only the variant this CI flow requested is expanded;
			// others are filtered out, never synthesized.
			if variantName != requestedVariant {
				continue
			}
			variant, ok := variants[variantName]
			if !ok {
				// Unreachable after matrix.ValidateAll.
				continue
			}
			artifactGroup := cfg.Family
			if variant.Suffix != "" {
				artifactGroup += "-" + variant.Suffix
			}
			rv = append(rv, &JobRow{
				Family:                   cfg.Family,
				TestRunsOn:               testRunsOn,
				TestRunsOnKernel:         cfg.TestRunsOnKernel,
				TestRunsOnMultiGPU:       testRunsOnMultiGPU,
				BenchmarkRunsOn:          cfg.BenchmarkRunsOn,
				BypassTestsForReleases:   cfg.BypassTestsForReleases,
				SanityCheckOnlyForFamily: cfg.SanityCheckOnlyForFamily,
				// A variant-level expect_failure is ORed onto the
				// row; a family-level flag is never downgraded.
				ExpectFailure:           cfg.ExpectFailure || variant.ExpectFailure,
				ExpectPyTorchFailure:    cfg.ExpectPyTorchFailure,
				BuildVariantLabel:       variant.Label,
				BuildVariantSuffix:      variant.Suffix,
				BuildVariantCMakePreset: variant.CMakePreset,
				ArtifactGroup:           artifactGroup,
			})
		}
	}
	return rv
}

// applyKernelRunnerOverride scans the extra labels for a kernel test runner
// request ("test_runner:<kernel>") and returns the effective test runner
// labels for the family. The first matching label wins; later ones are
// ignored. If the family has a runner for the requested kernel it is
// substituted, otherwise the family's test runners are blanked out, disabling
// its tests.
func applyKernelRunnerOverride(cfg *matrix.PlatformConfig, extraLabels []string) (string, string) {
	for _, label := range extraLabels {
		if !strings.Contains(label, "test_runner") {
			continue
		}
		kernelType := afterColon(label)
		if runner, ok := cfg.TestRunsOnKernel[kernelType]; ok {
			return runner, cfg.TestRunsOnMultiGPU
		}
		return "", ""
	}
	return cfg.TestRunsOn, cfg.TestRunsOnMultiGPU
}

// expandMultiArch groups the selected families by build variant instead of
// expanding per family: one MultiArchGroup per variant matching the requested
// variant, carrying every family that supports it on the platform.
func expandMultiArch(targetNames []string, lookup matrix.FamilyMatrix, platform string, variants map[string]*matrix.BuildVariant, requestedVariant string) []*MultiArchGroup {
	var variantOrder []string
	variantFamilies := map[string][]*MultiArchFamily{}

	for _, targetName := range targetNames {
		cfg, ok := lookup[targetName][platform]
		if !ok {
			continue
		}
		for _, variantName := range cfg.BuildVariants {
			if variantName != requestedVariant {
				continue
			}
			if _, ok := variantFamilies[variantName]; !ok {
				variantOrder = append(variantOrder, variantName)
			}
			// Distinct family keys may map to the same family name;
			// only list each family once.
			duplicate := false
			for _, existing := range variantFamilies[variantName] {
				if existing.Family == cfg.Family {
					duplicate = true
					break
				}
			}
			if !duplicate {
				variantFamilies[variantName] = append(variantFamilies[variantName], &MultiArchFamily{
					Family:                   cfg.Family,
					TestRunsOn:               cfg.TestRunsOn,
					SanityCheckOnlyForFamily: cfg.SanityCheckOnlyForFamily,
				})
			}
		}
	}

	rv := []*MultiArchGroup{}
	for _, variantName := range variantOrder {
		variant, ok := variants[variantName]
		if !ok {
			continue
		}
		families := variantFamilies[variantName]
		perFamilyJSON, err := json.Marshal(families)
		if err != nil {
			// Marshaling a slice of plain structs cannot fail.
			sklog.Errorf("Failed to encode per-family matrix: %s", err)
			continue
		}
		familyNames := make([]string, 0, len(families))
		for _, family := range families {
			familyNames = append(familyNames, family.Family)
		}
		suffix := variant.Suffix
		if suffix == "" {
			suffix = "release"
		}
		rv = append(rv, &MultiArchGroup{
			MatrixPerFamilyJSON:     string(perFamilyJSON),
			DistFamilies:            strings.Join(familyNames, ";"),
			ArtifactGroup:           "multi-arch-" + suffix,
			BuildVariantLabel:       variant.Label,
			BuildVariantSuffix:      variant.Suffix,
			BuildVariantCMakePreset: variant.CMakePreset,
			ExpectFailure:           variant.ExpectFailure,
		})
	}
	return rv
}
