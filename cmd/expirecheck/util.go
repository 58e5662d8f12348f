package main

import (
	"os"
	"strings"

	"github.com/benithors/expirecheck/internal/domain"
	"github.com/benithors/expirecheck/internal/monitor"
	"golang.org/x/term"
)

func readDomainsFromArgsAndStdin(args []string, stdin *os.File) ([]string, error) {
	var out []string

	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		out = append(out, a)
	}

	if term.IsTerminal(int(stdin.Fd())) {
		// Nothing piped in.
		return out, nil
	}

	stdinDomains, err := domain.ReadLines(stdin)
	if err != nil {
		return nil, err
	}
	out = append(out, stdinDomains...)
	return out, nil
}

func targets(domains []string, threshold int) []monitor.Target {
	out := make([]monitor.Target, 0, len(domains))
	for _, d := range domains {
		out = append(out, monitor.Target{Domain: d, Threshold: threshold})
	}
	return out
}
