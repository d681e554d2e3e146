// The main package for the leaderboard-webhooks executable.
package main

import (
	"github.com/JakeFAU/leaderboard-webhooks/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
