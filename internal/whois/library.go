package whois

import (
	"context"
	"fmt"
	"time"

	likexian "github.com/likexian/whois"
)

// LibraryClient delegates to github.com/likexian/whois, which follows
// registrar referrals and knows many registry quirks.
type LibraryClient struct {
	whois func(domain string, servers ...string) (string, error)
}

func NewLibraryClient(timeout time.Duration) *LibraryClient {
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &LibraryClient{whois: likexian.NewClient().SetTimeout(timeout).Whois}
}

func (l *LibraryClient) Query(ctx context.Context, domain string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	type result struct {
		body string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := l.whois(domain)
		done <- result{body, err}
	}()

	// The library has no context support; abandon the call on cancellation.
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Response{}, fmt.Errorf("whois %s: %w", domain, r.err)
		}
		return Response{Body: r.body}, nil
	}
}
