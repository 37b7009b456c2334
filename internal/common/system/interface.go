package system

import "context"

// Executor defines the interface for running host commands.
// This interface allows for mocking apt and sendmail in tests.
type Executor interface {
	// Run executes a command and returns its standard output
	Run(ctx context.Context, name string, args ...string) (string, error)

	// RunWithInput executes a command with the given bytes on standard input
	RunWithInput(ctx context.Context, input []byte, name string, args ...string) (string, error)
}
