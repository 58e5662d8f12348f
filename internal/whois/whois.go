package whois

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const ianaServer = "whois.iana.org"

// Querier fetches the raw WHOIS text for a domain.
type Querier interface {
	Query(ctx context.Context, domain string) (Response, error)
}

type Response struct {
	Body   string
	Server string
}

type Options struct {
	Timeout time.Duration
	Log     *zap.Logger

	// Safety valves for WHOIS servers.
	MaxConcurrentPerServer int
	MinDelayPerServer      time.Duration
	Retries                int
	Backoff                time.Duration

	// NoReferral stops at the registry answer for thin registries.
	NoReferral bool

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Client speaks the port 43 protocol directly.
type Client struct {
	opts Options
	log  *zap.Logger

	mu          sync.Mutex
	tldToServer map[string]string
	serverState map[string]*perServerState
}

type perServerState struct {
	sem  chan struct{}
	mu   sync.Mutex
	next time.Time
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxConcurrentPerServer <= 0 {
		opts.MaxConcurrentPerServer = 1
	}
	if opts.MinDelayPerServer <= 0 {
		opts.MinDelayPerServer = 250 * time.Millisecond
	}
	if opts.Retries == 0 {
		opts.Retries = 2
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 250 * time.Millisecond
	}
	if opts.dial == nil {
		opts.dial = (&net.Dialer{}).DialContext
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		opts:        opts,
		log:         log,
		tldToServer: make(map[string]string, 64),
	}
}

func (c *Client) Query(ctx context.Context, domain string) (Response, error) {
	tld := lastLabel(domain)
	if tld == "" {
		return Response{}, fmt.Errorf("invalid domain %q", domain)
	}

	server, err := c.serverForTLD(ctx, tld)
	if err != nil {
		return Response{}, fmt.Errorf("no whois server for %q: %w", tld, err)
	}

	body, err := c.query(ctx, server, domain)
	if err != nil {
		return Response{}, fmt.Errorf("whois %s: %w", server, err)
	}
	resp := Response{Body: body, Server: server}

	if c.opts.NoReferral {
		return resp, nil
	}
	ref := referral(body)
	if ref == "" || strings.EqualFold(ref, server) {
		return resp, nil
	}

	refBody, err := c.query(ctx, ref, domain)
	if err != nil {
		// The registry answer usually carries the expiry already.
		c.log.Debug("whois referral failed", zap.String("domain", domain), zap.String("server", ref), zap.Error(err))
		return resp, nil
	}
	return Response{Body: body + "\n" + refBody, Server: ref}, nil
}

func (c *Client) serverForTLD(ctx context.Context, tld string) (string, error) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	if tld == "" {
		return "", fmt.Errorf("empty tld")
	}

	c.mu.Lock()
	if s, ok := c.tldToServer[tld]; ok && s != "" {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	body, err := c.query(ctx, ianaServer, tld)
	if err != nil {
		return "", err
	}

	server := ianaWhoisServer(body)
	if server == "" {
		return "", fmt.Errorf("whois server not found for tld %q", tld)
	}
	c.mu.Lock()
	c.tldToServer[tld] = server
	c.mu.Unlock()
	c.log.Debug("resolved whois server", zap.String("tld", tld), zap.String("server", server))
	return server, nil
}

// Example: "whois:        whois.verisign-grs.com"
func ianaWhoisServer(body string) string {
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(strings.ToLower(line), "whois:") {
			continue
		}
		if f := strings.Fields(line[len("whois:"):]); len(f) > 0 {
			return f[0]
		}
	}
	return ""
}

// referral returns the registrar server named by a thin registry, if any.
func referral(body string) string {
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		k, v, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "Registrar WHOIS Server") {
			continue
		}
		v = strings.TrimSpace(v)
		v = strings.TrimPrefix(strings.TrimPrefix(v, "whois://"), "rwhois://")
		v = strings.TrimSuffix(v, "/")
		if f := strings.Fields(v); len(f) > 0 {
			return strings.ToLower(f[0])
		}
	}
	return ""
}

func (c *Client) stateForServer(server string) *perServerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serverState == nil {
		c.serverState = make(map[string]*perServerState, 16)
	}
	if st, ok := c.serverState[server]; ok {
		return st
	}
	st := &perServerState{sem: make(chan struct{}, c.opts.MaxConcurrentPerServer)}
	c.serverState[server] = st
	return st
}

func (c *Client) query(ctx context.Context, server, q string) (string, error) {
	attempts := c.opts.Retries + 1
	backoff := c.opts.Backoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := c.queryOnce(ctx, server, q)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == attempts-1 || !isRetryable(err) {
			break
		}
		c.log.Debug("whois retry", zap.String("server", server), zap.String("query", q), zap.Int("attempt", attempt+1), zap.Error(err))
		if err := sleepWithContext(ctx, backoff); err != nil {
			return "", err
		}
		backoff = minDuration(backoff*2, 2*time.Second)
	}

	return "", lastErr
}

func (c *Client) queryOnce(ctx context.Context, server, q string) (string, error) {
	st := c.stateForServer(server)

	// Bound concurrency per server.
	select {
	case st.sem <- struct{}{}:
		defer func() { <-st.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	// Rate limit per server, but don't count this wait time towards the network timeout.
	st.mu.Lock()
	scheduled := time.Now()
	if scheduled.Before(st.next) {
		scheduled = st.next
	}
	st.next = scheduled.Add(c.opts.MinDelayPerServer)
	st.mu.Unlock()
	if err := sleepUntil(ctx, scheduled); err != nil {
		return "", err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, "43")
	}
	conn, err := c.opts.dial(attemptCtx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.opts.Timeout))

	if _, err := io.WriteString(conn, q+"\r\n"); err != nil {
		return "", err
	}

	b, err := io.ReadAll(io.LimitReader(conn, 1<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func lastLabel(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 || i == len(domain)-1 {
		return ""
	}
	return domain[i+1:]
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

func sleepUntil(ctx context.Context, at time.Time) error {
	return sleepWithContext(ctx, time.Until(at))
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Timeouts are often transient for WHOIS.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	// Common transient TCP-level failures for simple WHOIS servers.
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "connection reset"):
		return true
	case strings.Contains(s, "broken pipe"):
		return true
	case strings.Contains(s, "unexpected eof"):
		return true
	}

	return false
}
