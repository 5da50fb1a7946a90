package main

import (
	"context"
	"strings"

	"github.com/containifyci/smartchecker/pkg/checker"
)

// KeyRelease is published with the major.minor NG release of the gateway.
const KeyRelease = "NG_RELEASE"

// SupportedReleases are the NG releases the memory checks are valid for.
var SupportedReleases = []string{"3.1", "3.2"}

var Module = &checker.ModuleFunc{
	Meta: checker.Metadata{
		ID:          "NG.RELEASE",
		Name:        "FlexiNG supported NG release",
		Version:     "1.0",
		Description: "Checks the NG release of the gateway against the validated releases.",
		Criteria:    "NG release is one of " + strings.Join(SupportedReleases, ", "),
		Tags:        []string{"flexing"},
		Priority:    checker.PriorityMajor,
		CheckCommands: []string{
			"show ng version",
		},
		Requires: []string{checker.KeyElement},
		Provides: []string{KeyRelease},
	},
	RunFn: run,
}

func run(_ context.Context, dc *checker.Context, _ string) checker.Result {
	result := checker.NewResult(Module.Meta.Name)

	element, _ := dc.Element()
	release := Release(element.Version)
	if release == "" {
		result.AddInfo("NG version can't be determined")
		return result
	}
	dc.Set(KeyRelease, release)

	for _, r := range SupportedReleases {
		if r == release {
			result.Pass()
			result.AddInfof("NG release %s is supported", release)
			return result
		}
	}
	result.Fail("NG release " + release + " is not validated, supported: " + strings.Join(SupportedReleases, ", "))
	return result
}

// Release reduces a version such as 3.2-3 to its major.minor release.
func Release(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	minor := parts[1]
	if i := strings.IndexFunc(minor, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		minor = minor[:i]
	}
	if parts[0] == "" || minor == "" {
		return ""
	}
	return parts[0] + "." + minor
}
