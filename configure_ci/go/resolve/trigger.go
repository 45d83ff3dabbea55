package resolve

import (
	"strings"

	"go.therock.dev/infra/configure_ci/go/matrix"
)

// Trigger is the CI event kind that initiated a resolution run.
type Trigger string

const (
	TRIGGER_PULL_REQUEST      Trigger = "pull_request"
	TRIGGER_PUSH              Trigger = "push"
	TRIGGER_SCHEDULE          Trigger = "schedule"
	TRIGGER_WORKFLOW_DISPATCH Trigger = "workflow_dispatch"
)

// Long-lived branches (main, release lines) run both presubmit and postsubmit
// jobs on push, instead of just presubmit jobs as for other branches.
var (
	longLivedFullMatch   = []string{"main", "test-branch"}
	longLivedPrefixMatch = []string{"release/therock-"}
)

// IsLongLivedBranch returns true if the branch is main or a release line.
func IsLongLivedBranch(branchName string) bool {
	for _, name := range longLivedFullMatch {
		if branchName == name {
			return true
		}
	}
	for _, prefix := range longLivedPrefixMatch {
		if strings.HasPrefix(branchName, prefix) {
			return true
		}
	}
	return false
}

// activeTriggerTypes returns the trigger tables whose families run by default
// for the given trigger.
func activeTriggerTypes(trigger Trigger, isLongLivedBranch bool) []string {
	switch trigger {
	case TRIGGER_PULL_REQUEST:
		return []string{matrix.TRIGGER_PRESUBMIT}
	case TRIGGER_PUSH:
		if isLongLivedBranch {
			return []string{matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT}
		}
		return []string{matrix.TRIGGER_PRESUBMIT}
	case TRIGGER_SCHEDULE:
		return []string{matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT, matrix.TRIGGER_NIGHTLY}
	default:
		return nil
	}
}

// lookupTriggerTypes returns the trigger tables used to validate explicitly
// requested family names. Defaults are narrow, but workflow_dispatch inputs
// and PR labels may reference any known family, so those triggers look up
// against all tables.
func lookupTriggerTypes(trigger Trigger, active []string) []string {
	if trigger == TRIGGER_WORKFLOW_DISPATCH || trigger == TRIGGER_PULL_REQUEST {
		return []string{matrix.TRIGGER_PRESUBMIT, matrix.TRIGGER_POSTSUBMIT, matrix.TRIGGER_NIGHTLY}
	}
	return active
}
