package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benithors/expirecheck/internal/domain"
	"github.com/benithors/expirecheck/internal/monitor"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type outputFormat int

const (
	formatTable outputFormat = iota
	formatNDJSON
	formatJSON
	formatPlain
)

func resolveFormat(flagVal string, stdout *os.File) outputFormat {
	switch strings.ToLower(strings.TrimSpace(flagVal)) {
	case "table":
		return formatTable
	case "ndjson":
		return formatNDJSON
	case "json":
		return formatJSON
	case "plain":
		return formatPlain
	case "auto", "":
	default:
		// Unknown format: fall back to auto.
	}

	if term.IsTerminal(int(stdout.Fd())) {
		return formatTable
	}
	return formatNDJSON
}

func writeResults(w io.Writer, format outputFormat, results []monitor.Result) error {
	switch format {
	case formatNDJSON:
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		return enc.Encode(results)
	case formatPlain:
		for _, r := range results {
			// Stable, line-oriented output for piping.
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Domain, r.Status, days(r), r.Expires); err != nil {
				return err
			}
		}
		return nil
	case formatTable:
		fallthrough
	default:
		tw := domain.NewTabWriter(w)
		fmt.Fprintln(tw, "DOMAIN\tREGISTRAR\tEXPIRES\tDAYS\tSTATUS\tDETAIL")
		for _, r := range results {
			detail := r.Detail
			if r.Error != "" {
				detail = r.Error
			}
			if r.Notified {
				detail = "notified"
			}
			if r.NotifyError != "" {
				detail = "notify failed: " + r.NotifyError
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Domain, r.Registrar, r.Expires, days(r), r.Status, detail)
		}
		return tw.Flush()
	}
}

func days(r monitor.Result) string {
	if r.DaysRemaining == nil {
		return "-"
	}
	return strconv.Itoa(*r.DaysRemaining)
}

// finish prints results and applies --strict.
func finish(a *app, cmd *cobra.Command, results []monitor.Result) error {
	if err := writeResults(os.Stdout, a.outFormat, results); err != nil {
		return &cliError{Code: 1, Err: fmt.Errorf("failed to write output: %w", err), Cmd: cmd}
	}
	if a.Strict {
		for _, r := range results {
			if r.Status == monitor.StatusError {
				return &cliError{Code: 1}
			}
		}
	}
	return nil
}
