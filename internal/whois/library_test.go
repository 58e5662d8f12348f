package whois

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLibraryClient_Query(t *testing.T) {
	t.Parallel()

	l := &LibraryClient{whois: func(domain string, servers ...string) (string, error) {
		return "Domain Name: " + strings.ToUpper(domain) + "\n", nil
	}}
	resp, err := l.Query(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Body != "Domain Name: EXAMPLE.COM\n" {
		t.Fatalf("Body=%q", resp.Body)
	}
}

func TestLibraryClient_QueryError(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")
	l := &LibraryClient{whois: func(string, ...string) (string, error) { return "", refused }}
	_, err := l.Query(context.Background(), "example.com")
	if !errors.Is(err, refused) {
		t.Fatalf("err=%v, want wrapped %v", err, refused)
	}
}

func TestLibraryClient_AbandonsOnCancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	l := &LibraryClient{whois: func(string, ...string) (string, error) {
		close(started)
		<-release
		return "late", nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := l.Query(ctx, "example.com")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Query did not return after cancel")
	}
}

func TestLibraryClient_CancelledBeforeQuery(t *testing.T) {
	t.Parallel()

	called := false
	l := &LibraryClient{whois: func(string, ...string) (string, error) {
		called = true
		return "", nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Query(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if called {
		t.Fatalf("library called with a cancelled context")
	}
}
