package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.therock.dev/infra/configure_ci/go/matrix"
)

func families(rows []*JobRow) []string {
	rv := []string{}
	for _, row := range rows {
		rv = append(rv, row.Family)
	}
	return rv
}

func TestGeneratePullRequestDefaults(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "release",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gfx110X-all", "gfx1151", "gfx120X-all", "gfx94X-dcgpu"}, families(res.Jobs))
	require.Empty(t, res.TestNames)

	// gfx94x has no Windows entry and is silently dropped there.
	res, err = Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_WINDOWS,
		BuildVariant: "release",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gfx110X-all", "gfx1151", "gfx120X-all"}, families(res.Jobs))
}

func TestGeneratePullRequestLabelOptIns(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		PRLabels:     []string{"gfx94x-build", "test:rocblas"},
		BuildVariant: "release",
	})
	require.NoError(t, err)
	// gfx94x is already a presubmit default; the label must not create a
	// duplicate row.
	require.Equal(t, []string{"gfx110X-all", "gfx1151", "gfx120X-all", "gfx94X-dcgpu"}, families(res.Jobs))
	require.Equal(t, []string{"rocblas"}, res.TestNames)

	// A label may opt into a family outside the presubmit table.
	res, err = Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		PRLabels:     []string{"gfx950-enable"},
		BuildVariant: "release",
	})
	require.NoError(t, err)
	require.Contains(t, families(res.Jobs), "gfx950-dcgpu")
}

func TestGeneratePullRequestUnknownNamesDropped(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		PRLabels:     []string{"gfx9999-build", "test:notarealtest"},
		BuildVariant: "release",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gfx110X-all", "gfx1151", "gfx120X-all", "gfx94X-dcgpu"}, families(res.Jobs))
	require.Empty(t, res.TestNames)
}

func TestGenerateSkipCI(t *testing.T) {
	// skip-ci empties both selections no matter where it appears in the
	// label list, and stops further label processing.
	for _, labels := range [][]string{
		{"skip-ci"},
		{"gfx94x-build", "test:rocblas", "skip-ci"},
		{"skip-ci", "run-all-archs-ci"},
		{"run-all-archs-ci", "skip-ci"},
	} {
		res, err := Generate(&Request{
			Trigger:      TRIGGER_PULL_REQUEST,
			BranchName:   "users/me/fix-thing",
			Platform:     matrix.PLATFORM_LINUX,
			PRLabels:     labels,
			BuildVariant: "release",
		})
		require.NoError(t, err, "labels %v", labels)
		require.Empty(t, res.Jobs, "labels %v", labels)
		require.Empty(t, res.TestNames, "labels %v", labels)
	}
}

func TestGenerateRunAllArchs(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		PRLabels:     []string{"run-all-archs-ci"},
		BuildVariant: "release",
	})
	require.NoError(t, err)
	all := matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT, matrix.TRIGGER_NIGHTLY)
	require.Len(t, res.Jobs, len(all))
	require.Contains(t, families(res.Jobs), "gfx950-dcgpu")
	require.Contains(t, families(res.Jobs), "gfx90X-dcgpu")
}

func TestGeneratePush(t *testing.T) {
	longLived, err := Generate(&Request{
		Trigger:      TRIGGER_PUSH,
		BranchName:   "main",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "release",
	})
	require.NoError(t, err)
	require.Contains(t, families(longLived.Jobs), "gfx950-dcgpu")

	featureBranch, err := Generate(&Request{
		Trigger:      TRIGGER_PUSH,
		BranchName:   "multi_arch/bringup1",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "release",
	})
	require.NoError(t, err)
	require.NotContains(t, families(featureBranch.Jobs), "gfx950-dcgpu")

	// A long-lived branch push covers at least everything a feature
	// branch push does.
	require.Subset(t, families(longLived.Jobs), families(featureBranch.Jobs))
}

func TestGenerateSchedule(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_SCHEDULE,
		BranchName:   "main",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "release",
	})
	require.NoError(t, err)
	all := matrix.ForTriggerTypes(matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT, matrix.TRIGGER_NIGHTLY)
	require.Len(t, res.Jobs, len(all))
}

func TestGenerateWorkflowDispatch(t *testing.T) {
	// Punctuation in the family input is noise; unknown names are dropped
	// with a warning, not an error.
	res, err := Generate(&Request{
		Trigger:          TRIGGER_WORKFLOW_DISPATCH,
		BranchName:       "main",
		Platform:         matrix.PLATFORM_LINUX,
		DispatchFamilies: "gfx94X ,|.gfx1201",
		BuildVariant:     "release",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gfx94X-dcgpu"}, families(res.Jobs))

	res, err = Generate(&Request{
		Trigger:            TRIGGER_WORKFLOW_DISPATCH,
		BranchName:         "main",
		Platform:           matrix.PLATFORM_LINUX,
		DispatchFamilies:   "gfx90x",
		DispatchTestLabels: "test:rocprim, test:hipcub",
		BuildVariant:       "release",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gfx90X-dcgpu"}, families(res.Jobs))
	require.Equal(t, []string{"rocprim", "hipcub"}, res.TestNames)
}

func TestGenerateUnknownTriggerIsFatal(t *testing.T) {
	_, err := Generate(&Request{
		Trigger:      Trigger("deployment"),
		BranchName:   "main",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "release",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "No trigger types determined")
}

func TestGenerateVariantFiltering(t *testing.T) {
	// Only gfx94x allows asan in the presubmit table.
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "asan",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"gfx94X-dcgpu"}, families(res.Jobs))
	row := res.Jobs[0]
	require.Equal(t, "asan", row.BuildVariantLabel)
	require.Equal(t, "linux-release-asan", row.BuildVariantCMakePreset)
	require.Equal(t, "gfx94X-dcgpu-asan", row.ArtifactGroup)
	// Variant-level expect_failure propagates to the row.
	require.True(t, row.ExpectFailure)

	// No Windows family allows asan.
	res, err = Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_WINDOWS,
		BuildVariant: "asan",
	})
	require.NoError(t, err)
	require.Empty(t, res.Jobs)
}

func TestGenerateFamilyExpectFailureNotDowngraded(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:          TRIGGER_WORKFLOW_DISPATCH,
		BranchName:       "main",
		Platform:         matrix.PLATFORM_LINUX,
		DispatchFamilies: "gfx101x",
		BuildVariant:     "release",
	})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	// gfx101x is expected to fail at the family level even though the
	// release variant itself is not.
	require.True(t, res.Jobs[0].ExpectFailure)
	require.Equal(t, "gfx101X-dgpu", res.Jobs[0].ArtifactGroup)
}

func TestGenerateKernelRunnerOverride(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		PRLabels:     []string{"test_runner:oem"},
		BuildVariant: "release",
	})
	require.NoError(t, err)
	byFamily := map[string]*JobRow{}
	for _, row := range res.Jobs {
		byFamily[row.Family] = row
	}
	// gfx1151 has an oem kernel runner; it gets substituted.
	require.Equal(t, "linux-strix-halo-gpu-rocm-oem", byFamily["gfx1151"].TestRunsOn)
	// gfx94x has no kernel runners; its tests are disabled entirely.
	require.Equal(t, "", byFamily["gfx94X-dcgpu"].TestRunsOn)
	require.Equal(t, "", byFamily["gfx94X-dcgpu"].TestRunsOnMultiGPU)
}

func TestGenerateKernelRunnerFirstMatchWins(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		PRLabels:     []string{"test_runner:bogus", "test_runner:oem"},
		BuildVariant: "release",
	})
	require.NoError(t, err)
	byFamily := map[string]*JobRow{}
	for _, row := range res.Jobs {
		byFamily[row.Family] = row
	}
	// The first test_runner label wins even though gfx1151 has no "bogus"
	// kernel runner, so its tests are disabled.
	require.Equal(t, "", byFamily["gfx1151"].TestRunsOn)
}

func TestGenerateExtraLabelOptionsHonored(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:           TRIGGER_WORKFLOW_DISPATCH,
		BranchName:        "main",
		Platform:          matrix.PLATFORM_LINUX,
		DispatchFamilies:  "gfx1151",
		ExtraLabelOptions: []string{"test_runner:oem"},
		BuildVariant:      "release",
	})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	require.Equal(t, "linux-strix-halo-gpu-rocm-oem", res.Jobs[0].TestRunsOn)
}

func TestGenerateRunnerOverridesApplied(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:      TRIGGER_PULL_REQUEST,
		BranchName:   "users/me/fix-thing",
		Platform:     matrix.PLATFORM_LINUX,
		BuildVariant: "release",
		Overrides:    matrix.RunnerOverrides{"gfx94x": {matrix.PLATFORM_LINUX: "linux-mi300-1gpu-ossci-rocm"}},
	})
	require.NoError(t, err)
	byFamily := map[string]*JobRow{}
	for _, row := range res.Jobs {
		byFamily[row.Family] = row
	}
	require.Equal(t, "linux-mi300-1gpu-ossci-rocm", byFamily["gfx94X-dcgpu"].TestRunsOn)
}

func TestGenerateMultiArch(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:          TRIGGER_WORKFLOW_DISPATCH,
		BranchName:       "main",
		Platform:         matrix.PLATFORM_LINUX,
		DispatchFamilies: "gfx94x gfx950",
		BuildVariant:     "release",
		MultiArch:        true,
	})
	require.NoError(t, err)
	require.Nil(t, res.Jobs)
	require.Len(t, res.MultiArch, 1)
	group := res.MultiArch[0]
	require.Equal(t, "gfx94X-dcgpu;gfx950-dcgpu", group.DistFamilies)
	require.Equal(t, "multi-arch-release", group.ArtifactGroup)
	require.Equal(t, "release", group.BuildVariantLabel)
	require.False(t, group.ExpectFailure)
	require.Contains(t, group.MatrixPerFamilyJSON, `"amdgpu_family":"gfx94X-dcgpu"`)
	require.Contains(t, group.MatrixPerFamilyJSON, `"test-runs-on":"Ubuntu-latest"`)
}

func TestGenerateMultiArchVariantSuffix(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:          TRIGGER_WORKFLOW_DISPATCH,
		BranchName:       "main",
		Platform:         matrix.PLATFORM_LINUX,
		DispatchFamilies: "gfx94x gfx950 gfx1151",
		BuildVariant:     "asan",
		MultiArch:        true,
	})
	require.NoError(t, err)
	require.Len(t, res.MultiArch, 1)
	group := res.MultiArch[0]
	// gfx1151 does not allow asan and is excluded from the group.
	require.Equal(t, "gfx94X-dcgpu;gfx950-dcgpu", group.DistFamilies)
	require.Equal(t, "multi-arch-asan", group.ArtifactGroup)
	require.True(t, group.ExpectFailure)
}

func TestGenerateMultiArchNoMatchingFamilies(t *testing.T) {
	res, err := Generate(&Request{
		Trigger:          TRIGGER_WORKFLOW_DISPATCH,
		BranchName:       "main",
		Platform:         matrix.PLATFORM_WINDOWS,
		DispatchFamilies: "gfx94x",
		BuildVariant:     "release",
		MultiArch:        true,
	})
	require.NoError(t, err)
	require.Empty(t, res.MultiArch)
}
