package main

import (
	"fmt"
	"io"
	"os"

	"github.com/benithors/expirecheck/internal/config"
	"github.com/benithors/expirecheck/internal/domain"
	"github.com/benithors/expirecheck/internal/monitor"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Check every domain in a file of \"domain [days]\" lines (or the config's domains)",
		Long: "Check every domain in a file of \"domain [days]\" lines, one query at a time.\n" +
			"Lines without days use --days. Use - to read the list from stdin.\n" +
			"Without a file, the domains: list of --config is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []monitor.Target
			if len(args) == 1 {
				entries, err := readEntries(args[0])
				if err != nil {
					return &cliError{Code: 2, Err: fmt.Errorf("failed to read domain file: %w", err), Cmd: cmd}
				}
				list = entryTargets(entries, a.conf.Days)
			} else {
				list = configTargets(a.conf)
			}
			if len(list) == 0 {
				return &cliError{Code: 2, Err: fmt.Errorf("no domains to check (pass a file or set domains: in --config)"), ShowUsage: true, Cmd: cmd}
			}

			results := a.monitor.CheckAll(cmd.Context(), list)
			return finish(a, cmd, results)
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	return cmd
}

func readEntries(path string) ([]domain.Entry, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return domain.ReadEntries(r)
}

func entryTargets(entries []domain.Entry, threshold int) []monitor.Target {
	out := make([]monitor.Target, 0, len(entries))
	for _, e := range entries {
		t := monitor.Target{Domain: e.Domain, Threshold: threshold}
		if e.HasDays {
			t.Threshold = e.Days
		}
		out = append(out, t)
	}
	return out
}

func configTargets(conf config.Config) []monitor.Target {
	out := make([]monitor.Target, 0, len(conf.Domains))
	for _, d := range conf.Domains {
		t := monitor.Target{Domain: d.Name, Threshold: conf.Days}
		if d.Days > 0 {
			t.Threshold = d.Days
		}
		out = append(out, t)
	}
	return out
}
