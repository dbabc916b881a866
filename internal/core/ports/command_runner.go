package ports

import (
	"context"
	"io"
)

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env holds extra "KEY=VALUE" pairs appended to the allow-listed host environment.
	Env []string
}

// CommandRunner runs external compilers.
//
//go:generate mockgen -source=command_runner.go -destination=mocks/mock_command_runner.go -package=mocks
type CommandRunner interface {
	// Run executes cmd and streams its combined output to out.
	// A non-zero exit status is returned as an error.
	Run(ctx context.Context, cmd Command, out io.Writer) error
}
