package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyLabel(t *testing.T) {
	for _, tc := range []struct {
		label    string
		expected []labelMatch
	}{
		{"skip-ci", []labelMatch{{kind: labelSkipCI}}},
		{"run-all-archs-ci", []labelMatch{{kind: labelRunAllArchs}}},
		{"gfx94x-build", []labelMatch{{kind: labelFamilyOptIn, value: "gfx94x"}}},
		{"gfx1151", []labelMatch{{kind: labelFamilyOptIn, value: "gfx1151"}}},
		{"test:rocblas", []labelMatch{{kind: labelTestOptIn, value: "rocblas"}}},
		{"test_runner:oem", []labelMatch{{kind: labelKernelRunner, value: "oem"}}},
		// A kernel label with no colon carries an empty kernel type.
		{"test_runner", []labelMatch{{kind: labelKernelRunner, value: ""}}},
		// One label may opt into both a family and a test.
		{"gfx94x-test:rocblas", []labelMatch{
			{kind: labelFamilyOptIn, value: "gfx94x"},
			{kind: labelTestOptIn, value: "rocblas"},
		}},
		{"documentation", []labelMatch{{kind: labelUnrecognized}}},
		{"", []labelMatch{{kind: labelUnrecognized}}},
		// The exact-match labels do not pattern-match as substrings.
		{"skip-ci-please", []labelMatch{{kind: labelUnrecognized}}},
	} {
		require.Equal(t, tc.expected, classifyLabel(tc.label), "label %q", tc.label)
	}
}
