package monitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benithors/expirecheck/internal/domain"
	"github.com/benithors/expirecheck/internal/expiry"
	"github.com/benithors/expirecheck/internal/notify"
	"github.com/benithors/expirecheck/internal/whois"
	"go.uber.org/zap"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
	StatusError    Status = "error"
)

type Target struct {
	Domain    string
	Threshold int
}

type Result struct {
	Input         string `json:"input,omitempty"`
	Domain        string `json:"domain"`
	Status        Status `json:"status"`
	Registrar     string `json:"registrar,omitempty"`
	Expires       string `json:"expires,omitempty"`
	DaysRemaining *int   `json:"days_remaining,omitempty"`
	Threshold     int    `json:"threshold"`
	ExpiringSoon  bool   `json:"expiring_soon"`
	Expired       bool   `json:"expired"`
	Label         string `json:"label,omitempty"`
	WHOISServer   string `json:"whois_server,omitempty"`
	Notified      bool   `json:"notified,omitempty"`
	NotifyError   string `json:"notify_error,omitempty"`
	Detail        string `json:"detail,omitempty"`
	Error         string `json:"error,omitempty"`
	CheckedAt     string `json:"checked_at"`
	DurationMs    int64  `json:"duration_ms"`
}

type Parser interface {
	Parse(text string) (expiry.Record, error)
}

type Notifier interface {
	Notify(ctx context.Context, n notify.Expiring) error
}

type Options struct {
	WHOIS    whois.Querier
	Parser   Parser
	Notifier Notifier

	// Delay is waited between consecutive WHOIS queries.
	Delay time.Duration
	Now   func() time.Time
	Log   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Monitor checks domains one at a time.
type Monitor struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options) *Monitor {
	if opts.Parser == nil {
		opts.Parser = expiry.NewParser(expiry.Options{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.sleep == nil {
		opts.sleep = sleepWithContext
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{opts: opts, log: log}
}

// CheckAll runs targets sequentially, pausing Delay between queries. Results
// are in input order; targets not reached before ctx ends carry its error.
func (m *Monitor) CheckAll(ctx context.Context, targets []Target) []Result {
	out := make([]Result, 0, len(targets))
	for i, t := range targets {
		if i > 0 {
			if err := m.opts.sleep(ctx, m.opts.Delay); err != nil {
				for _, rest := range targets[i:] {
					out = append(out, m.failed(rest, strings.TrimSpace(rest.Domain), time.Now(), "not checked", err))
				}
				return out
			}
		}
		out = append(out, m.Check(ctx, t))
	}
	return out
}

func (m *Monitor) Check(ctx context.Context, t Target) Result {
	start := time.Now()

	name, err := domain.Normalize(t.Domain)
	if err != nil {
		return m.failed(t, strings.TrimSpace(t.Domain), start, "invalid input", err)
	}
	if m.opts.WHOIS == nil {
		return m.failed(t, name, start, "whois unavailable", errors.New("no whois client configured"))
	}

	resp, err := m.opts.WHOIS.Query(ctx, name)
	if err != nil {
		return m.failed(t, name, start, "whois query failed", err)
	}

	r := m.evaluate(ctx, t, name, resp.Body, start)
	r.WHOISServer = resp.Server
	return r
}

// CheckText evaluates a WHOIS response obtained elsewhere.
func (m *Monitor) CheckText(ctx context.Context, t Target, body string) Result {
	start := time.Now()
	name := strings.TrimSpace(t.Domain)
	if name != "" {
		if ascii, err := domain.Normalize(name); err == nil {
			name = ascii
		}
	}
	return m.evaluate(ctx, t, name, body, start)
}

func (m *Monitor) evaluate(ctx context.Context, t Target, name, body string, start time.Time) Result {
	rec, err := m.opts.Parser.Parse(body)
	if err != nil {
		return m.failed(t, name, start, "whois parse failed", err)
	}

	st := expiry.Evaluate(rec.Expires, m.opts.Now(), t.Threshold)
	days := st.DaysRemaining
	r := Result{
		Input:         inputIfDifferent(t.Domain, name),
		Domain:        name,
		Status:        StatusOK,
		Registrar:     rec.Registrar,
		Expires:       rec.Expires.UTC().Format(time.RFC3339),
		DaysRemaining: &days,
		Threshold:     t.Threshold,
		ExpiringSoon:  st.ExpiringSoon,
		Expired:       st.Expired,
		Label:         rec.Label,
	}
	switch {
	case st.Expired:
		r.Status = StatusExpired
	case st.ExpiringSoon:
		r.Status = StatusExpiring
	}

	if st.ExpiringSoon && m.opts.Notifier != nil {
		err := m.opts.Notifier.Notify(ctx, notify.Expiring{
			Domain:        name,
			Registrar:     rec.Registrar,
			Expires:       rec.Expires,
			DaysRemaining: days,
		})
		if err != nil {
			m.log.Warn("notification failed", zap.String("domain", name), zap.Error(err))
			r.NotifyError = err.Error()
		} else {
			m.log.Info("notification sent", zap.String("domain", name), zap.Int("days_remaining", days))
			r.Notified = true
		}
	}

	m.log.Debug("domain checked",
		zap.String("domain", name),
		zap.String("registrar", rec.Registrar),
		zap.Time("expires", rec.Expires),
		zap.Int("days_remaining", days),
		zap.Bool("expiring_soon", st.ExpiringSoon))

	r.CheckedAt = time.Now().UTC().Format(time.RFC3339Nano)
	r.DurationMs = time.Since(start).Milliseconds()
	return r
}

func (m *Monitor) failed(t Target, name string, start time.Time, detail string, err error) Result {
	m.log.Warn("domain check failed", zap.String("domain", name), zap.String("detail", detail), zap.Error(err))
	return Result{
		Input:      inputIfDifferent(t.Domain, name),
		Domain:     name,
		Status:     StatusError,
		Threshold:  t.Threshold,
		Detail:     detail,
		Error:      err.Error(),
		CheckedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		DurationMs: time.Since(start).Milliseconds(),
	}
}

func inputIfDifferent(input, name string) string {
	input = strings.TrimSpace(input)
	if input == name {
		return ""
	}
	return input
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
