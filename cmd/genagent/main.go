// Genagent runs natural-language goals through a planner, executor,
// validator and memory pipeline.
//
// Usage:
//
//	# Run one goal and exit (0 on DONE, 1 on FAILED, 2 on setup errors)
//	genagent "What is 15% of 890?"
//
//	# Interactive loop; exit, quit, q or EOF leave
//	genagent
//
//	# Serve the HTTP API with run events on NATS
//	genagent serve
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2
)

// exitError carries a process exit code. A nil err means the command already
// reported the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func setupError(err error) error { return &exitError{code: exitSetup, err: err} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and maps its error to an exit code.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	return executeApp(ctx, newApp(in, out, errOut), args)
}

func executeApp(ctx context.Context, a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(a.errOut, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	// Flag and argument errors from cobra.
	fmt.Fprintf(a.errOut, "Error: %v\n", err)
	return exitSetup
}
