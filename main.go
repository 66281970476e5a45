// Synapse - Graph-based project context for LLM coding assistants.
//
// Synapse serves a prebuilt code graph over MCP, retrieving the most
// task-relevant functions, documentation, and source within a token budget.
package main

import (
	"fmt"
	"os"

	"github.com/calderb/synapse-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
