// Package gha is the GitHub Actions boundary: parsing workflow-supplied
// inputs and writing workflow outputs and step summaries.
package gha

import (
	"fmt"
	"os"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/pkg/errors"

	"go.therock.dev/infra/go/sklog"
)

// ParsePRLabels extracts the label names from the PR_LABELS JSON, shaped as
// {"labels": [{"name": "..."}]} like the pull_request event payload.
// Malformed JSON is logged and treated as "no labels".
func ParsePRLabels(jsonStr string) []string {
	rv := []string{}
	if jsonStr == "" {
		return rv
	}
	parsed, err := gabs.ParseJSON([]byte(jsonStr))
	if err != nil {
		sklog.Warningf("Ignoring malformed PR label JSON: %s", err)
		return rv
	}
	labels := parsed.Path("labels")
	if labels == nil {
		return rv
	}
	for _, label := range labels.Children() {
		if name, ok := label.Path("name").Data().(string); ok {
			rv = append(rv, name)
		}
	}
	return rv
}

// SplitLabelOptions splits a comma-separated label option string, dropping
// empty entries.
func SplitLabelOptions(s string) []string {
	rv := []string{}
	for _, label := range strings.Split(s, ",") {
		label = strings.TrimSpace(label)
		if label != "" {
			rv = append(rv, label)
		}
	}
	return rv
}

// SetOutput writes workflow output variables to the file named by
// $GITHUB_OUTPUT. Multiline values use the heredoc form. Outside of Actions
// (no GITHUB_OUTPUT set) the outputs go to stdout instead, which is handy
// when running locally.
func SetOutput(outputs map[string]string, keys []string) error {
	var b strings.Builder
	for _, key := range keys {
		value := outputs[key]
		if strings.Contains(value, "\n") {
			fmt.Fprintf(&b, "%s<<EOF\n%s\nEOF\n", key, value)
		} else {
			fmt.Fprintf(&b, "%s=%s\n", key, value)
		}
	}
	outputFile := os.Getenv("GITHUB_OUTPUT")
	if outputFile == "" {
		fmt.Print(b.String())
		return nil
	}
	return appendToFile(outputFile, b.String())
}

// AppendStepSummary appends markdown to the file named by
// $GITHUB_STEP_SUMMARY, falling back to stdout when unset.
func AppendStepSummary(md string) error {
	if !strings.HasSuffix(md, "\n") {
		md += "\n"
	}
	summaryFile := os.Getenv("GITHUB_STEP_SUMMARY")
	if summaryFile == "" {
		fmt.Print(md)
		return nil
	}
	return appendToFile(summaryFile, md)
}

func appendToFile(path, contents string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "Failed to open %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil {
			sklog.Errorf("Failed to close %s: %s", path, err)
		}
	}()
	if _, err := f.WriteString(contents); err != nil {
		return errors.Wrapf(err, "Failed to write %s", path)
	}
	return nil
}
