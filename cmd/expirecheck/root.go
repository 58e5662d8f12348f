package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/benithors/expirecheck/internal/config"
	"github.com/benithors/expirecheck/internal/expiry"
	"github.com/benithors/expirecheck/internal/monitor"
	"github.com/benithors/expirecheck/internal/notify"
	"github.com/benithors/expirecheck/internal/whois"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	Version string

	// Global flags.
	VersionFlag    bool
	ConfigPath     string
	Format         string
	JSON           bool
	NDJSON         bool
	Plain          bool
	Timeout        time.Duration
	Sleep          time.Duration
	Days           int
	Email          bool
	SMTPServer     string
	SMTPPort       int
	SMTPTo         string
	SMTPFrom       string
	SMTPUser       string
	SMTPPassword   string
	WHOISClient    string
	FallbackParser bool
	Strict         bool
	Quiet          bool
	Verbose        bool

	// Derived runtime state.
	conf      config.Config
	log       *zap.Logger
	monitor   *monitor.Monitor
	outFormat outputFormat
}

func newRootCmd(ver string) *cobra.Command {
	a := &app{Version: ver}
	def := config.Default()

	root := &cobra.Command{
		Use:           "expirecheck",
		Short:         "Warn before domain registrations expire (WHOIS based)",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return &cliError{Code: 2, ShowUsage: true, Cmd: cmd}
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(usageErr)

	pf := root.PersistentFlags()
	pf.BoolVar(&a.VersionFlag, "version", false, "Print version and exit")
	pf.StringVar(&a.ConfigPath, "config", "", "YAML config file (flags override it)")
	pf.StringVar(&a.Format, "format", "auto", "Output format: auto|table|ndjson|json|plain")
	pf.BoolVar(&a.JSON, "json", false, "Alias for --format json (single JSON array)")
	pf.BoolVar(&a.NDJSON, "ndjson", false, "Alias for --format ndjson (one JSON object per line)")
	pf.BoolVar(&a.Plain, "plain", false, "Alias for --format plain (stable tab-separated)")
	pf.DurationVar(&a.Timeout, "timeout", def.Timeout, "Per-query WHOIS timeout (e.g. 8s)")
	pf.DurationVar(&a.Sleep, "sleep", def.Sleep, "Pause between WHOIS queries to avoid registry rate limits")
	pf.IntVar(&a.Days, "days", def.Days, "Warn when fewer than this many days remain")
	pf.BoolVar(&a.Email, "email", def.Email, "Send an email for each expiring domain")
	pf.StringVar(&a.SMTPServer, "smtp-server", def.SMTP.Server, "SMTP server")
	pf.IntVar(&a.SMTPPort, "smtp-port", def.SMTP.Port, "SMTP port")
	pf.StringVar(&a.SMTPTo, "smtp-to", def.SMTP.To, "SMTP To: address (comma separated)")
	pf.StringVar(&a.SMTPFrom, "smtp-from", def.SMTP.From, "SMTP From: address")
	pf.StringVar(&a.SMTPUser, "smtp-user", "", "SMTP username (enables PLAIN auth)")
	pf.StringVar(&a.SMTPPassword, "smtp-password", "", "SMTP password (or EXPIRECHECK_SMTP_PASSWORD)")
	pf.StringVar(&a.WHOISClient, "whois-client", def.WHOISClient, "WHOIS client: native|library")
	pf.BoolVar(&a.FallbackParser, "fallback-parser", def.FallbackParser, "Try whois-parser when no known expiration label matches")
	pf.BoolVar(&a.Strict, "strict", false, "Exit non-zero if any domain could not be checked")
	pf.BoolVarP(&a.Quiet, "quiet", "q", false, "Suppress non-essential stderr output")
	pf.BoolVarP(&a.Verbose, "verbose", "v", false, "Verbose stderr output (diagnostics)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if a.VersionFlag {
			fmt.Fprintf(os.Stdout, "expirecheck %s (%s/%s)\n", a.Version, runtime.GOOS, runtime.GOARCH)
			return errExit0
		}

		formatStr := strings.ToLower(strings.TrimSpace(a.Format))
		if formatStr == "" {
			formatStr = "auto"
		}

		aliases := 0
		if a.JSON {
			aliases++
		}
		if a.NDJSON {
			aliases++
		}
		if a.Plain {
			aliases++
		}
		if aliases > 1 {
			return usageErr(cmd, fmt.Errorf("flags are mutually exclusive: --json, --ndjson, --plain"))
		}
		if formatStr != "auto" && aliases == 1 {
			return usageErr(cmd, fmt.Errorf("do not combine --format with --json/--ndjson/--plain"))
		}

		if a.JSON {
			formatStr = "json"
		}
		if a.NDJSON {
			formatStr = "ndjson"
		}
		if a.Plain {
			formatStr = "plain"
		}

		a.outFormat = resolveFormat(formatStr, os.Stdout)

		conf, err := a.buildConfig(cmd)
		if err != nil {
			return err
		}
		a.conf = conf
		a.log = newLogger(a.Verbose, a.Quiet)

		var querier whois.Querier
		switch strings.ToLower(conf.WHOISClient) {
		case config.WHOISLibrary:
			querier = whois.NewLibraryClient(conf.Timeout)
		default:
			querier = whois.NewClient(whois.Options{
				Timeout: conf.Timeout,
				Log:     a.log.Named("whois"),
			})
		}

		// A nil *notify.Email must not end up in the interface.
		var notifier monitor.Notifier
		if conf.Email {
			notifier = notify.NewEmail(conf.SMTP)
		}

		a.monitor = monitor.New(monitor.Options{
			WHOIS:    querier,
			Parser:   expiry.NewParser(expiry.Options{Fallback: conf.FallbackParser}),
			Notifier: notifier,
			Delay:    conf.Sleep,
			Log:      a.log.Named("monitor"),
		})
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a.log != nil {
			_ = a.log.Sync()
		}
	}

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newBatchCmd(a))
	root.AddCommand(newParseCmd(a))

	return root
}

// buildConfig layers defaults, the config file and explicitly set flags.
func (a *app) buildConfig(cmd *cobra.Command) (config.Config, error) {
	conf := config.Default()
	if a.ConfigPath != "" {
		loaded, err := config.Load(a.ConfigPath, conf)
		if err != nil {
			return config.Config{}, &cliError{Code: 2, Err: fmt.Errorf("failed to load config: %w", err), Cmd: cmd}
		}
		conf = loaded
	}

	if p := strings.TrimSpace(os.Getenv("EXPIRECHECK_SMTP_PASSWORD")); p != "" {
		conf.SMTP.Password = p
	}

	f := cmd.Flags()
	if f.Changed("days") {
		conf.Days = a.Days
	}
	if f.Changed("sleep") {
		conf.Sleep = a.Sleep
	}
	if f.Changed("timeout") {
		conf.Timeout = a.Timeout
	}
	if f.Changed("whois-client") {
		conf.WHOISClient = a.WHOISClient
	}
	if f.Changed("fallback-parser") {
		conf.FallbackParser = a.FallbackParser
	}
	if f.Changed("email") {
		conf.Email = a.Email
	}
	if f.Changed("smtp-server") {
		conf.SMTP.Server = a.SMTPServer
	}
	if f.Changed("smtp-port") {
		conf.SMTP.Port = a.SMTPPort
	}
	if f.Changed("smtp-to") {
		conf.SMTP.To = a.SMTPTo
	}
	if f.Changed("smtp-from") {
		conf.SMTP.From = a.SMTPFrom
	}
	if f.Changed("smtp-user") {
		conf.SMTP.Username = a.SMTPUser
	}
	if f.Changed("smtp-password") {
		conf.SMTP.Password = a.SMTPPassword
	}

	if err := conf.Validate(); err != nil {
		return config.Config{}, usageErr(cmd, err)
	}
	return conf, nil
}
