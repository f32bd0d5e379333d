package admin

import (
	"context"
	"io"
	"os/exec"
)

// Command is one process invocation. Nil streams are discarded.
type Command struct {
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runner starts a command and waits for it. A command that ran but exited
// non-zero returns an error implementing ExitCode() int.
type Runner interface {
	Run(ctx context.Context, c Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd.Run()
}

type exitCoder interface {
	ExitCode() int
}
