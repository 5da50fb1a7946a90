// Package flexing holds the compiled-in check modules for FlexiNG gateways.
// Importing the package registers its modules in the default registry.
package flexing

import (
	"context"
	"regexp"

	"github.com/containifyci/smartchecker/pkg/checker"
	"github.com/containifyci/smartchecker/pkg/logfile"
)

const ElementType = "FlexiNG"

var (
	patHostname = []*regexp.Regexp{
		regexp.MustCompile(`\b\w+@([\w-]+)\s*\[[\w-]+\]\s*[>#]`),
		regexp.MustCompile(`^\s*[Hh]ostname\s*[:=]\s*([\w.-]+)`),
	}
	patVersion = regexp.MustCompile(`(?i)\bNG\s+version\s*[:=]?\s*(\d+\.\d+[\w.-]*)`)
)

// Element identifies the gateway: it publishes the hostname and NG version
// found in the log for the report and for modules gated on the NG release.
var Element = &checker.ModuleFunc{
	Meta: checker.Metadata{
		ID:          "FLEXING.ELEMENT",
		Name:        "FlexiNG element identity",
		Version:     "1.0",
		Description: "Reads the gateway hostname and NG release from the log.",
		Criteria:    "hostname must be present in the log",
		Tags:        []string{"flexing"},
		Priority:    checker.PriorityNormal,
		CheckCommands: []string{
			"hostname",
			"show ng version",
		},
		Provides: []string{checker.KeyElement},
	},
	RunFn: runElement,
}

func runElement(ctx context.Context, dc *checker.Context, path string) checker.Result {
	result := checker.NewResult(Element.Meta.Name)

	lines, err := logfile.ReadLines(path)
	if err != nil {
		result.Abort(err)
		return result
	}

	element := ParseElement(lines)
	if element.Hostname == "" {
		result.AddInfo("hostname can't be determined")
		return result
	}
	dc.SetElement(element)

	result.AddInfof("hostname: %s", element.Hostname)
	if element.Version != "" {
		result.AddInfof("NG version: %s", element.Version)
	} else {
		result.AddInfo("NG version can't be determined")
	}
	result.Pass()
	return result
}

// ParseElement extracts the first hostname and NG version found in lines.
func ParseElement(lines []string) checker.Element {
	element := checker.Element{Type: ElementType}
	for _, line := range lines {
		if element.Hostname == "" {
			for _, re := range patHostname {
				if m := re.FindStringSubmatch(line); m != nil {
					element.Hostname = m[1]
					break
				}
			}
		}
		if element.Version == "" {
			if m := patVersion.FindStringSubmatch(line); m != nil {
				element.Version = m[1]
			}
		}
		if element.Hostname != "" && element.Version != "" {
			break
		}
	}
	return element
}

func init() {
	checker.Register(Element)
}
