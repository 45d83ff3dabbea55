package matrix

import (
	"github.com/Jeffail/gabs/v2"

	"go.therock.dev/infra/go/sklog"
)

// RunnerOverrides maps a family key to per-platform test runner labels. Test
// runner names change frequently, so the CI organization publishes them as a
// JSON variable rather than baking them into the static tables.
type RunnerOverrides map[string]map[string]string

// ParseRunnerOverrides parses the runner override JSON, shaped as
// {"gfx94x": {"linux": "runner-label"}}. Malformed data is logged and treated
// as "no overrides"; a stale organization variable must not break every CI
// run.
func ParseRunnerOverrides(jsonStr string) RunnerOverrides {
	rv := RunnerOverrides{}
	if jsonStr == "" {
		return rv
	}
	parsed, err := gabs.ParseJSON([]byte(jsonStr))
	if err != nil {
		sklog.Warningf("Ignoring malformed test runner override JSON: %s", err)
		return rv
	}
	for key, platforms := range parsed.ChildrenMap() {
		for platform, label := range platforms.ChildrenMap() {
			labelStr, ok := label.Data().(string)
			if !ok {
				sklog.Warningf("Ignoring non-string runner override for %s/%s: %v", key, platform, label.Data())
				continue
			}
			if _, ok := rv[key]; !ok {
				rv[key] = map[string]string{}
			}
			rv[key][platform] = labelStr
		}
	}
	return rv
}

// WithRunnerOverrides returns a copy of the matrix with TestRunsOn replaced
// for every (family, platform) pair present in the overrides. Pairs not in
// the matrix are ignored. No other field is touched, and applying the same
// overrides twice is a no-op.
func (m FamilyMatrix) WithRunnerOverrides(overrides RunnerOverrides) FamilyMatrix {
	rv := m.Copy()
	for key, platforms := range overrides {
		for platform, label := range platforms {
			if cfg, ok := rv[key][platform]; ok {
				cfg.TestRunsOn = label
			}
		}
	}
	return rv
}
