// Command pregel is the CLI entry point: run a JobSpec file, or one of the
// built-in example jobs.
package main

import "github.com/arborworks/pregel/cmd/pregel/cmd"

func main() {
	cmd.Execute()
}
