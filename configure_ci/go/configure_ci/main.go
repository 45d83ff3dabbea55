// configure_ci resolves the metadata for a CI workflow run: which AMD GPU
// families, build variants and test suites to run for the trigger that
// started the workflow. It reads the GitHub Actions environment and writes
// workflow output variables plus a human-readable step summary.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.therock.dev/infra/configure_ci/go/gha"
	"go.therock.dev/infra/configure_ci/go/gitfilter"
	"go.therock.dev/infra/configure_ci/go/matrix"
	"go.therock.dev/infra/configure_ci/go/resolve"
	"go.therock.dev/infra/go/sklog"
	"go.therock.dev/infra/go/urfavecli"
)

// configureFlags are the workflow inputs. Every flag is also readable from
// the environment variable the workflows have always used.
type configureFlags struct {
	EventName              string
	BranchName             string
	BaseRef                string
	PRLabels               string
	PRNumber               int
	LinuxFamilies          string
	WindowsFamilies        string
	LinuxTestLabels        string
	WindowsTestLabels      string
	AdditionalLabelOptions string
	BuildVariant           string
	MultiArch              bool
	LinuxUsePrebuilt       bool
	WindowsUsePrebuilt     bool
	RunnerOverrides        string
	LoadRunnerOverrides    bool
	RepoDir                string
}

func (flags *configureFlags) AsCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Destination: &flags.EventName,
			Name:        "event_name",
			EnvVars:     []string{"GITHUB_EVENT_NAME"},
			Usage:       "GitHub event name, e.g. pull_request.",
		},
		&cli.StringFlag{
			Destination: &flags.BranchName,
			Name:        "branch_name",
			EnvVars:     []string{"GITHUB_REF_NAME"},
			Usage:       "The branch name. Required.",
		},
		&cli.StringFlag{
			Destination: &flags.BaseRef,
			Name:        "base_ref",
			EnvVars:     []string{"BASE_REF"},
			Value:       "HEAD^1",
			Usage:       "Base ref of the PR, for file diffing.",
		},
		&cli.StringFlag{
			Destination: &flags.PRLabels,
			Name:        "pr_labels",
			EnvVars:     []string{"PR_LABELS"},
			Usage:       "JSON object with the PR label names, e.g. {\"labels\": [{\"name\": \"skip-ci\"}]}.",
		},
		&cli.IntFlag{
			Destination: &flags.PRNumber,
			Name:        "pr_number",
			EnvVars:     []string{"PR_NUMBER"},
			Usage:       "PR number, used to fetch labels from the API when --pr_labels is empty.",
		},
		&cli.StringFlag{
			Destination: &flags.LinuxFamilies,
			Name:        "linux_amdgpu_families",
			EnvVars:     []string{"INPUT_LINUX_AMDGPU_FAMILIES"},
			Usage:       "Free-form string of Linux AMD GPU families to run.",
		},
		&cli.StringFlag{
			Destination: &flags.WindowsFamilies,
			Name:        "windows_amdgpu_families",
			EnvVars:     []string{"INPUT_WINDOWS_AMDGPU_FAMILIES"},
			Usage:       "Free-form string of Windows AMD GPU families to run.",
		},
		&cli.StringFlag{
			Destination: &flags.LinuxTestLabels,
			Name:        "linux_test_labels",
			EnvVars:     []string{"LINUX_TEST_LABELS"},
			Usage:       "Comma-separated list of test labels to run on Linux.",
		},
		&cli.StringFlag{
			Destination: &flags.WindowsTestLabels,
			Name:        "windows_test_labels",
			EnvVars:     []string{"WINDOWS_TEST_LABELS"},
			Usage:       "Comma-separated list of test labels to run on Windows.",
		},
		&cli.StringFlag{
			Destination: &flags.AdditionalLabelOptions,
			Name:        "additional_label_options",
			EnvVars:     []string{"ADDITIONAL_LABEL_OPTIONS"},
			Usage:       "Comma-separated label options supplied alongside a workflow_dispatch.",
		},
		&cli.StringFlag{
			Destination: &flags.BuildVariant,
			Name:        "build_variant",
			EnvVars:     []string{"BUILD_VARIANT"},
			Value:       "release",
			Usage:       "The build variant to run (ex: release, asan, tsan).",
		},
		&cli.BoolFlag{
			Destination: &flags.MultiArch,
			Name:        "multi_arch",
			EnvVars:     []string{"MULTI_ARCH"},
			Usage:       "Group the matrix by build variant instead of by family.",
		},
		&cli.BoolFlag{
			Destination: &flags.LinuxUsePrebuilt,
			Name:        "linux_use_prebuilt_artifacts",
			EnvVars:     []string{"LINUX_USE_PREBUILT_ARTIFACTS"},
			Usage:       "If set, CI only runs Linux tests.",
		},
		&cli.BoolFlag{
			Destination: &flags.WindowsUsePrebuilt,
			Name:        "windows_use_prebuilt_artifacts",
			EnvVars:     []string{"WINDOWS_USE_PREBUILT_ARTIFACTS"},
			Usage:       "If set, CI only runs Windows tests.",
		},
		&cli.StringFlag{
			Destination: &flags.RunnerOverrides,
			Name:        "test_runners",
			EnvVars:     []string{"ROCM_THEROCK_TEST_RUNNERS"},
			Usage:       "Test runner override JSON, from the CI organization variable.",
		},
		&cli.BoolFlag{
			Destination: &flags.LoadRunnerOverrides,
			Name:        "load_test_runners_from_var",
			EnvVars:     []string{"LOAD_TEST_RUNNERS_FROM_VAR"},
			Value:       true,
			Usage:       "Apply the test runner overrides from --test_runners.",
		},
		&cli.StringFlag{
			Destination: &flags.RepoDir,
			Name:        "repo_dir",
			Value:       ".",
			Usage:       "Path to the repo checkout, for file diffing.",
		},
	}
}

func main() {
	var flags configureFlags
	app := &cli.App{
		Name:  "configure_ci",
		Usage: "Resolves the build/test job matrix for a CI workflow run.",
		Flags: (&flags).AsCliFlags(),
		Action: func(c *cli.Context) error {
			return run(c, &flags)
		},
	}
	defer sklog.Flush()
	if err := app.Run(os.Args); err != nil {
		sklog.Fatal(err)
	}
}

func run(c *cli.Context, flags *configureFlags) error {
	if flags.BranchName == "" {
		return errors.New("GITHUB_REF_NAME is not set! No branch name detected.")
	}
	if err := matrix.ValidateAll(); err != nil {
		return err
	}

	urfavecli.LogFlags(c)

	trigger := resolve.Trigger(flags.EventName)
	prLabels, err := fetchPRLabels(c, flags, trigger)
	if err != nil {
		return err
	}
	if trigger == resolve.TRIGGER_PULL_REQUEST {
		sklog.Infof("  pr_labels: %v", prLabels)
	}

	overrides := matrix.RunnerOverrides{}
	if flags.LoadRunnerOverrides {
		overrides = matrix.ParseRunnerOverrides(flags.RunnerOverrides)
	}

	req := &resolve.Request{
		Trigger:           trigger,
		BranchName:        flags.BranchName,
		PRLabels:          prLabels,
		ExtraLabelOptions: gha.SplitLabelOptions(flags.AdditionalLabelOptions),
		BuildVariant:      flags.BuildVariant,
		MultiArch:         flags.MultiArch,
		Overrides:         overrides,
	}

	linuxReq := *req
	linuxReq.Platform = matrix.PLATFORM_LINUX
	linuxReq.DispatchFamilies = flags.LinuxFamilies
	linuxReq.DispatchTestLabels = flags.LinuxTestLabels
	linuxResult, err := resolve.Generate(&linuxReq)
	if err != nil {
		return err
	}

	windowsReq := *req
	windowsReq.Platform = matrix.PLATFORM_WINDOWS
	windowsReq.DispatchFamilies = flags.WindowsFamilies
	windowsReq.DispatchTestLabels = flags.WindowsTestLabels
	windowsResult, err := resolve.Generate(&windowsReq)
	if err != nil {
		return err
	}

	enableBuildJobs := true
	var modifiedPaths, submodulePaths []string
	if trigger != resolve.TRIGGER_SCHEDULE {
		// Scheduled runs always build; anything else builds only when a
		// build-relevant path changed.
		modifiedPaths, err = gitfilter.ModifiedPaths(c.Context, flags.RepoDir, flags.BaseRef)
		if err != nil {
			return err
		}
		sklog.Infof("Checking %d modified file(s) since this had a %s trigger", len(modifiedPaths), flags.EventName)
		enableBuildJobs = gitfilter.IsCIRunRequired(modifiedPaths)
		submodulePaths, err = gitfilter.SubmodulePaths(c.Context, flags.RepoDir)
		if err != nil {
			return err
		}
	}
	testType, reason := resolve.DecideTestType(trigger, modifiedPaths, submodulePaths, linuxResult.TestNames, windowsResult.TestNames)
	sklog.Infof("test_type decision: %q (reason: %s)", testType, reason)

	linuxVariants, err := variantsJSON(linuxResult)
	if err != nil {
		return err
	}
	windowsVariants, err := variantsJSON(windowsResult)
	if err != nil {
		return err
	}
	linuxTests, err := json.Marshal(linuxResult.TestNames)
	if err != nil {
		return err
	}
	windowsTests, err := json.Marshal(windowsResult.TestNames)
	if err != nil {
		return err
	}

	outputs := map[string]string{
		"linux_variants":      linuxVariants,
		"linux_test_labels":   string(linuxTests),
		"windows_variants":    windowsVariants,
		"windows_test_labels": string(windowsTests),
		"enable_build_jobs":   strconv.FormatBool(enableBuildJobs),
		"test_type":           testType,
	}
	outputKeys := []string{"linux_variants", "linux_test_labels", "windows_variants", "windows_test_labels", "enable_build_jobs", "test_type"}
	if err := gha.SetOutput(outputs, outputKeys); err != nil {
		return err
	}

	summary := fmt.Sprintf(`## Workflow configure results

* `+"`linux_variants`"+`: %v
* `+"`linux_test_labels`"+`: %v
* `+"`linux_use_prebuilt_artifacts`"+`: %t
* `+"`windows_variants`"+`: %v
* `+"`windows_test_labels`"+`: %v
* `+"`windows_use_prebuilt_artifacts`"+`: %t
* `+"`enable_build_jobs`"+`: %t
* `+"`test_type`"+`: %s
`, summaryFamilies(linuxResult), linuxResult.TestNames, flags.LinuxUsePrebuilt,
		summaryFamilies(windowsResult), windowsResult.TestNames, flags.WindowsUsePrebuilt,
		enableBuildJobs, testType)
	if err := gha.AppendStepSummary(summary); err != nil {
		return err
	}

	printMaintainerReport(linuxResult, windowsResult)
	return nil
}

// fetchPRLabels returns the PR label names, preferring the PR_LABELS
// environment payload and falling back to the GitHub API when a repo and PR
// number are available.
func fetchPRLabels(c *cli.Context, flags *configureFlags, trigger resolve.Trigger) ([]string, error) {
	if trigger != resolve.TRIGGER_PULL_REQUEST {
		return gha.ParsePRLabels(flags.PRLabels), nil
	}
	if flags.PRLabels != "" || flags.PRNumber == 0 {
		return gha.ParsePRLabels(flags.PRLabels), nil
	}
	repo := os.Getenv("GITHUB_REPOSITORY")
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 {
		return nil, errors.Errorf("Cannot fetch PR labels; invalid GITHUB_REPOSITORY %q.", repo)
	}
	client := gha.NewClient(c.Context, parts[0], parts[1], os.Getenv("GITHUB_TOKEN"))
	sklog.Infof("Fetching labels for %s#%d from the GitHub API", repo, flags.PRNumber)
	return client.PullRequestLabels(flags.PRNumber)
}

// variantsJSON serializes whichever matrix mode the result carries.
func variantsJSON(result *resolve.Result) (string, error) {
	var rv []byte
	var err error
	if result.MultiArch != nil {
		rv, err = json.Marshal(result.MultiArch)
	} else {
		rv, err = json.Marshal(result.Jobs)
	}
	if err != nil {
		return "", errors.Wrap(err, "Failed to encode variants")
	}
	return string(rv), nil
}

// summaryFamilies renders the family names of a result for the step summary:
// a flat list in standard mode, one list per variant group in multi-arch
// mode.
func summaryFamilies(result *resolve.Result) []string {
	rv := []string{}
	for _, row := range result.Jobs {
		rv = append(rv, row.Family)
	}
	for _, group := range result.MultiArch {
		rv = append(rv, fmt.Sprintf("[%s]", strings.ReplaceAll(group.DistFamilies, ";", " ")))
	}
	return rv
}

// printMaintainerReport writes a detailed table of the resolved jobs to
// stdout for CI maintainers.
func printMaintainerReport(linux, windows *resolve.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Platform", "Family", "Variant", "Test Runner", "Artifact Group", "Expect Failure"})
	appendRows := func(platform string, result *resolve.Result) {
		for _, row := range result.Jobs {
			table.Append([]string{platform, row.Family, row.BuildVariantLabel, row.TestRunsOn, row.ArtifactGroup, strconv.FormatBool(row.ExpectFailure)})
		}
		for _, group := range result.MultiArch {
			table.Append([]string{platform, group.DistFamilies, group.BuildVariantLabel, "", group.ArtifactGroup, strconv.FormatBool(group.ExpectFailure)})
		}
	}
	appendRows(matrix.PLATFORM_LINUX, linux)
	appendRows(matrix.PLATFORM_WINDOWS, windows)
	table.Render()
}
