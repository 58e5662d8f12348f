package domain

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/net/idna"
)

// Normalize turns user input into a lower-case ASCII domain name suitable for
// WHOIS lookups.
//
// It is permissive about the wrapping (allows URLs, strips paths and ports)
// but rejects internationalized names: only LDH labels are accepted.
func Normalize(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	// Operators paste registrar URLs as often as bare names.
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			if u.Host != "" {
				s = u.Host
			}
		}
	}

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	} else if i := strings.LastIndexByte(s, ':'); i > 0 && isAllDigits(s[i+1:]) {
		s = s[:i]
	}

	s = strings.TrimSuffix(s, ".")
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	if ascii != s || strings.Contains(ascii, "xn--") {
		return "", fmt.Errorf("internationalized domain names are not supported: %q", input)
	}

	// Enforce at least one dot; single-label names are not registrable domains.
	if !strings.Contains(ascii, ".") {
		return "", fmt.Errorf("domain must contain a dot: %q", input)
	}

	if !isValidDomainASCII(ascii) {
		return "", fmt.Errorf("invalid domain: %q", input)
	}

	return ascii, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ReadLines returns the non-blank lines of r with # comments removed.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	var out []string
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Entry is one line of a domain file: a name and its own warning threshold.
type Entry struct {
	Domain  string
	Days    int
	HasDays bool
	Line    int
}

// ReadEntries parses "domain [days]" lines. Blank lines and # comments are
// skipped; anything else that does not fit is an error naming the line.
func ReadEntries(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	var out []Entry
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 {
			return nil, fmt.Errorf("line %d: want \"domain [days]\", got %q", n, strings.TrimSpace(sc.Text()))
		}

		name, err := Normalize(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		e := Entry{Domain: name, Line: n}
		if len(fields) == 2 {
			days, err := strconv.Atoi(fields[1])
			if err != nil || days < 0 {
				return nil, fmt.Errorf("line %d: invalid days %q", n, fields[1])
			}
			e.Days, e.HasDays = days, true
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// isValidDomainASCII accepts two or more LDH labels of 1-63 bytes, 253 bytes total.
func isValidDomainASCII(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
				continue
			}
			return false
		}
	}
	return true
}
