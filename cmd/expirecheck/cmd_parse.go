package main

import (
	"fmt"
	"io"
	"os"

	"github.com/benithors/expirecheck/internal/monitor"
	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Evaluate a saved WHOIS response (file or stdin) without querying",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
			}
			if err != nil {
				return &cliError{Code: 1, Err: fmt.Errorf("failed to read whois text: %w", err), Cmd: cmd}
			}

			r := a.monitor.CheckText(cmd.Context(), monitor.Target{Domain: name, Threshold: a.conf.Days}, string(body))
			if err := writeResults(os.Stdout, a.outFormat, []monitor.Result{r}); err != nil {
				return &cliError{Code: 1, Err: fmt.Errorf("failed to write output: %w", err), Cmd: cmd}
			}
			if r.Status == monitor.StatusError {
				return &cliError{Code: 1}
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	cmd.Flags().StringVar(&name, "domain", "", "Domain name to show in the output")
	return cmd
}
