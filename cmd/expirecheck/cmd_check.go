package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [domain...]",
		Short: "Check expiration for explicit domains (args and/or stdin)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputDomains, err := readDomainsFromArgsAndStdin(args, os.Stdin)
			if err != nil {
				return &cliError{Code: 1, Err: fmt.Errorf("failed to read domains: %w", err), Cmd: cmd}
			}
			if len(inputDomains) == 0 {
				return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
			}

			results := a.monitor.CheckAll(cmd.Context(), targets(inputDomains, a.conf.Days))
			return finish(a, cmd, results)
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	return cmd
}
