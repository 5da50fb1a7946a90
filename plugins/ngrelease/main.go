// Command ngrelease is a check module served as a plugin. It verifies that a
// FlexiNG gateway runs an NG release the checklists are validated against.
//
// Build it next to a checklist and list the binary under plugins:
//
//	go build -o checklists/plugins/ngrelease ./plugins/ngrelease
package main

import "github.com/containifyci/smartchecker/pkg/plugin"

func main() {
	plugin.Serve(Module)
}
