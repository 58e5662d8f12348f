package whois

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestIANAWhoisServer(t *testing.T) {
	t.Parallel()

	body := "% IANA WHOIS server\n\ndomain:       COM\n\nwhois:        whois.verisign-grs.com\n\nstatus:       ACTIVE\n"
	if got := ianaWhoisServer(body); got != "whois.verisign-grs.com" {
		t.Fatalf("ianaWhoisServer=%q", got)
	}
	if got := ianaWhoisServer("domain: TEST\n"); got != "" {
		t.Fatalf("ianaWhoisServer=%q, want empty", got)
	}
}

func TestReferral(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body string
		want string
	}{
		{"   Registrar WHOIS Server: whois.markmonitor.com\n", "whois.markmonitor.com"},
		{"Registrar WHOIS Server: whois://WHOIS.Example.net/\n", "whois.example.net"},
		{"Registrar WHOIS Server:\n", ""},
		{"Domain Name: EXAMPLE.COM\n", ""},
	}
	for _, tc := range cases {
		if got := referral(tc.body); got != tc.want {
			t.Fatalf("referral(%q)=%q, want %q", tc.body, got, tc.want)
		}
	}
}

func TestLastLabel(t *testing.T) {
	t.Parallel()

	if got := lastLabel("example.co.uk"); got != "uk" {
		t.Fatalf("lastLabel=%q", got)
	}
	if got := lastLabel("example."); got != "" {
		t.Fatalf("lastLabel=%q, want empty", got)
	}
	if got := lastLabel("localhost"); got != "" {
		t.Fatalf("lastLabel=%q, want empty", got)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if isRetryable(context.Canceled) {
		t.Fatalf("canceled should not be retryable")
	}
	if !isRetryable(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
	if !isRetryable(errors.New("read tcp: connection reset by peer")) {
		t.Fatalf("connection reset should be retryable")
	}
	if isRetryable(errors.New("no such host")) {
		t.Fatalf("dns failure should not be retryable")
	}
}

// fakeServers answers port 43 queries from a map keyed by "host:port".
type fakeServers struct {
	mu      sync.Mutex
	answers map[string]map[string]string
	queries []string
}

func (f *fakeServers) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	f.mu.Lock()
	answers, ok := f.answers[addr]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("connection refused")
	}

	client, server := net.Pipe()
	go func() {
		defer server.Close()
		line, err := bufio.NewReader(server).ReadString('\n')
		if err != nil {
			return
		}
		q := strings.TrimSpace(line)
		f.mu.Lock()
		f.queries = append(f.queries, addr+" "+q)
		f.mu.Unlock()
		_, _ = io.WriteString(server, answers[q])
	}()
	return client, nil
}

func TestClientQuery_FollowsReferral(t *testing.T) {
	t.Parallel()

	fs := &fakeServers{answers: map[string]map[string]string{
		"whois.iana.org:43": {"com": "whois:        whois.verisign-grs.com\n"},
		"whois.verisign-grs.com:43": {"example.com": "Domain Name: EXAMPLE.COM\n" +
			"Registrar WHOIS Server: whois.registrar.test\n" +
			"Registry Expiry Date: 2028-09-14T04:00:00Z\n"},
		"whois.registrar.test:43": {"example.com": "Registrar: Test Registrar\n"},
	}}

	c := NewClient(Options{Timeout: time.Second, MinDelayPerServer: time.Millisecond, dial: fs.dial})
	resp, err := c.Query(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Server != "whois.registrar.test" {
		t.Fatalf("Server=%q", resp.Server)
	}
	if !strings.Contains(resp.Body, "Registry Expiry Date:") || !strings.Contains(resp.Body, "Registrar: Test Registrar") {
		t.Fatalf("Body=%q", resp.Body)
	}

	// The TLD server is cached.
	if _, err := c.Query(context.Background(), "example.com"); err != nil {
		t.Fatalf("second Query: %v", err)
	}
	iana := 0
	for _, q := range fs.queries {
		if strings.HasPrefix(q, "whois.iana.org") {
			iana++
		}
	}
	if iana != 1 {
		t.Fatalf("iana queries=%d, want 1", iana)
	}
}

func TestClientQuery_ReferralFailureKeepsRegistryAnswer(t *testing.T) {
	t.Parallel()

	fs := &fakeServers{answers: map[string]map[string]string{
		"whois.iana.org:43": {"net": "whois: whois.verisign-grs.com\n"},
		"whois.verisign-grs.com:43": {"example.net": "Registrar WHOIS Server: whois.down.test\n" +
			"Registry Expiry Date: 2028-09-14T04:00:00Z\n"},
	}}

	c := NewClient(Options{Timeout: time.Second, MinDelayPerServer: time.Millisecond, Retries: -1, dial: fs.dial})
	resp, err := c.Query(context.Background(), "example.net")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Server != "whois.verisign-grs.com" {
		t.Fatalf("Server=%q", resp.Server)
	}
}

func TestClientQuery_InvalidDomain(t *testing.T) {
	t.Parallel()

	c := NewClient(Options{})
	if _, err := c.Query(context.Background(), "localhost"); err == nil {
		t.Fatalf("expected error")
	}
}
