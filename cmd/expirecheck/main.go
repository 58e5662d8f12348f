package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// Exit codes: 0 ok, 1 runtime failure, 2 usage.
type cliError struct {
	Code      int
	Err       error
	ShowUsage bool
	Cmd       *cobra.Command
}

func (e *cliError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

var errExit0 = &cliError{Code: 0}

func usageErr(cmd *cobra.Command, err error) error {
	return &cliError{Code: 2, Err: err, ShowUsage: true, Cmd: cmd}
}

func run() int {
	// Cron and systemd stop jobs with SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(version)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ce *cliError
	if !errors.As(err, &ce) {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	if msg := ce.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
		fmt.Fprintln(os.Stderr)
	}
	if ce.ShowUsage && ce.Cmd != nil {
		_ = ce.Cmd.Usage()
	}
	return ce.Code
}
