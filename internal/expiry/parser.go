package expiry

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// UnknownRegistrar is reported when a response carries no registrar label.
const UnknownRegistrar = "Unknown"

var (
	ErrNoExpiration = errors.New("no known expiration label")
	ErrBadDate      = errors.New("unparseable expiration date")
)

// ParseError is returned when a WHOIS response does not yield an expiration date.
type ParseError struct {
	Label string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("whois parse: %v", e.Err)
	}
	return fmt.Sprintf("whois parse: %v (%s %q)", e.Err, e.Label, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record is the structured result of parsing one WHOIS response.
type Record struct {
	Registrar string    `json:"registrar"`
	Expires   time.Time `json:"expires"`
	Label     string    `json:"label,omitempty"`
}

// Strategy turns the text following a label into a timestamp.
type Strategy func(value string) (time.Time, error)

// Rule pairs an expiration label with the strategy used for its value.
type Rule struct {
	Label string
	Parse Strategy
}

// Permissive parses anything dateparse understands; zone-less values are UTC.
func Permissive(value string) (time.Time, error) {
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return resolveZone(t)
}

// Layouts tries each layout in order and falls back to Permissive.
func Layouts(layouts ...string) Strategy {
	return func(value string) (time.Time, error) {
		for _, l := range layouts {
			if t, err := time.Parse(l, value); err == nil {
				return resolveZone(t)
			}
		}
		return Permissive(value)
	}
}

// zoneOffsets covers the abbreviations registries actually print, in seconds east of UTC.
var zoneOffsets = map[string]int{
	"UT": 0, "WET": 0, "Z": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
	"BST": 1 * 3600, "WEST": 1 * 3600,
	"CET": 1 * 3600, "CEST": 2 * 3600,
	"EET": 2 * 3600, "EEST": 3 * 3600,
	"MSK": 3 * 3600,
	"JST": 9 * 3600, "KST": 9 * 3600,
	"AEST": 10 * 3600, "AEDT": 11 * 3600,
}

// resolveZone converts t to UTC. time.Parse gives an abbreviation it cannot
// resolve in the local zone a zero offset; those come from zoneOffsets.
func resolveZone(t time.Time) (time.Time, error) {
	name, off := t.Zone()
	if off != 0 || name == "" || name == "UTC" || name == "GMT" {
		return t.UTC(), nil
	}
	offset, ok := zoneOffsets[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown time zone %q", name)
	}
	return t.Add(-time.Duration(offset) * time.Second).UTC(), nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DefaultRules is ordered: within a line, earlier labels are checked first.
var DefaultRules = []Rule{
	{"Registry Expiry Date:", Layouts(isoLayouts...)},
	{"Registrar Registration Expiration Date:", Layouts(isoLayouts...)},
	{"Expiration:", Permissive},
	{"Domain Expiration Date", Layouts(time.UnixDate, "Mon Jan 02 15:04:05 MST 2006")},
	{"expire:", Layouts(isoLayouts...)},
	// .fi and .br style values.
	{"expires:", Layouts(append([]string{"2.1.2006 15:04:05", "2.1.2006", "20060102"}, isoLayouts...)...)},
	{"Expiry date", Layouts("02-Jan-2006", "2-Jan-2006")},
}

var DefaultRegistrarLabels = []string{"Registrar:", "registrar:"}

type Options struct {
	Rules           []Rule
	RegistrarLabels []string

	// Fallback consults whois-parser when no rule label matches.
	Fallback bool
}

type Parser struct {
	opts Options
}

func NewParser(opts Options) *Parser {
	if len(opts.Rules) == 0 {
		opts.Rules = DefaultRules
	}
	if len(opts.RegistrarLabels) == 0 {
		opts.RegistrarLabels = DefaultRegistrarLabels
	}
	return &Parser{opts: opts}
}

var defaultParser = NewParser(Options{})

// Parse uses the default rule table without fallback.
func Parse(text string) (Record, error) {
	return defaultParser.Parse(text)
}

func (p *Parser) Parse(text string) (Record, error) {
	var (
		rec        Record
		rule       *Rule
		value      string
		nextLineRR bool
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()

		if nextLineRR {
			v := strings.TrimSpace(line)
			if v == "" {
				continue
			}
			nextLineRR = false
			// The Nominet name line is bare; anything shaped "key: value" is another field.
			if !strings.Contains(v, ":") {
				rec.Registrar = v
				continue
			}
		}

		if rule == nil {
			if r, v, ok := matchRule(p.opts.Rules, line); ok {
				rule, value = r, v
			}
		}

		if rec.Registrar == "" {
			if l, v, ok := matchLabel(p.opts.RegistrarLabels, line); ok {
				switch {
				case v != "":
					rec.Registrar = v
				case strings.TrimSpace(line) == l:
					// Nominet puts the name on the following line.
					nextLineRR = true
				}
			}
		}

		if rule != nil && rec.Registrar != "" {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return Record{}, &ParseError{Err: err}
	}

	if rec.Registrar == "" {
		rec.Registrar = UnknownRegistrar
	}

	if rule == nil {
		if p.opts.Fallback {
			return fallback(text, rec.Registrar)
		}
		return Record{}, &ParseError{Err: ErrNoExpiration}
	}

	t, err := rule.Parse(value)
	if err != nil {
		return Record{}, &ParseError{Label: rule.Label, Value: value, Err: fmt.Errorf("%w: %v", ErrBadDate, err)}
	}
	rec.Expires = t
	rec.Label = rule.Label
	return rec, nil
}

func matchRule(rules []Rule, line string) (*Rule, string, bool) {
	for i := range rules {
		if v, ok := valueAfter(line, rules[i].Label); ok && v != "" {
			return &rules[i], v, true
		}
	}
	return nil, "", false
}

func matchLabel(labels []string, line string) (string, string, bool) {
	for _, l := range labels {
		if v, ok := valueAfter(line, l); ok {
			return l, v, true
		}
	}
	return "", "", false
}

func valueAfter(line, label string) (string, bool) {
	i := strings.Index(line, label)
	if i < 0 {
		return "", false
	}
	v := strings.TrimLeft(line[i+len(label):], ": \t")
	return strings.TrimSpace(v), true
}
