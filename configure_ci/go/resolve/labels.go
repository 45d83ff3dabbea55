package resolve

import (
	"strings"
)

// labelKind classifies a PR or workflow_dispatch label. The raw strings are
// ad hoc ("gfx94x-build", "test:rocblas", "test_runner:oem"), so we classify
// once and let the resolver operate on structured values.
type labelKind int

const (
	labelUnrecognized labelKind = iota
	labelSkipCI
	labelRunAllArchs
	labelFamilyOptIn
	labelTestOptIn
	labelKernelRunner
)

// labelMatch is one classification of a label, with the extracted value for
// the kinds that carry one (family key, test name, or kernel type).
type labelMatch struct {
	kind  labelKind
	value string
}

// classifyLabel returns all classifications of a label, in the order they
// are checked. A single label may opt into both a family and a test; the
// exact labels "skip-ci" and "run-all-archs-ci" match alone.
func classifyLabel(label string) []labelMatch {
	switch label {
	case "skip-ci":
		return []labelMatch{{kind: labelSkipCI}}
	case "run-all-archs-ci":
		return []labelMatch{{kind: labelRunAllArchs}}
	}
	var rv []labelMatch
	if strings.Contains(label, "gfx") {
		// A GPU target label contributes the portion before the first
		// hyphen, e.g. "gfx94x-build" -> "gfx94x".
		rv = append(rv, labelMatch{kind: labelFamilyOptIn, value: strings.SplitN(label, "-", 2)[0]})
	}
	if strings.Contains(label, "test:") {
		rv = append(rv, labelMatch{kind: labelTestOptIn, value: afterColon(label)})
	}
	if strings.Contains(label, "test_runner") {
		rv = append(rv, labelMatch{kind: labelKernelRunner, value: afterColon(label)})
	}
	if len(rv) == 0 {
		rv = append(rv, labelMatch{kind: labelUnrecognized})
	}
	return rv
}

// afterColon returns the portion of the label after the first colon, or empty
// if there is none.
func afterColon(label string) string {
	parts := strings.SplitN(label, ":", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
