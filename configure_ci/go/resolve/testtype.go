package resolve

import (
	"fmt"
)

const (
	TEST_TYPE_SMOKE = "smoke"
	TEST_TYPE_FULL  = "full"
)

// DecideTestType chooses the test scope for this run. Component tests run
// smoke tests by default; they escalate to the full suite when the run is
// scheduled, when a changed path is a submodule, or when any test was
// explicitly requested. Conditions are checked in that order and the first
// match supplies the reported reason.
func DecideTestType(trigger Trigger, modifiedPaths, submodulePaths, linuxTests, windowsTests []string) (string, string) {
	if trigger == TRIGGER_SCHEDULE {
		return TEST_TYPE_FULL, "scheduled run triggers full tests"
	}

	submodules := make(map[string]bool, len(submodulePaths))
	for _, path := range submodulePaths {
		submodules[path] = true
	}
	var matching []string
	for _, path := range dedup(modifiedPaths) {
		if submodules[path] {
			matching = append(matching, path)
		}
	}
	if len(matching) > 0 {
		return TEST_TYPE_FULL, fmt.Sprintf("submodule(s) changed: %v", matching)
	}

	if len(linuxTests) > 0 || len(windowsTests) > 0 {
		combined := dedup(append(append([]string{}, linuxTests...), windowsTests...))
		return TEST_TYPE_FULL, fmt.Sprintf("test label(s) specified: %v", combined)
	}

	return TEST_TYPE_SMOKE, "default (smoke tests)"
}
