package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	WHOISNative  = "native"
	WHOISLibrary = "library"
)

// Config is built once at startup and passed by value afterwards.
//
//nolint:tagliatelle
type Config struct {
	Days    int           `yaml:"days"`
	Sleep   time.Duration `yaml:"sleep"`
	Timeout time.Duration `yaml:"timeout"`

	WHOISClient    string `yaml:"whois-client"`
	FallbackParser bool   `yaml:"fallback-parser"`

	Email bool `yaml:"email"`
	SMTP  SMTP `yaml:"smtp"`

	Domains []Domain `yaml:"domains"`
}

//nolint:tagliatelle
type SMTP struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (s SMTP) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server, s.Port)
}

// Domain is a config-file entry; Days of zero means "use the global threshold".
type Domain struct {
	Name string `yaml:"name"`
	Days int    `yaml:"days"`
}

// Default mirrors the historical command line defaults.
func Default() Config {
	return Config{
		Days:        10000,
		Sleep:       60 * time.Second,
		Timeout:     8 * time.Second,
		WHOISClient: WHOISNative,
		SMTP: SMTP{
			Server: "localhost",
			Port:   25,
			From:   "root",
			To:     "root",
		},
	}
}

// Load overlays the YAML file at path on top of base.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	c := base
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Days < 0 {
		errs = append(errs, fmt.Errorf("days must be >= 0, got %d", c.Days))
	}
	if c.Sleep < 0 {
		errs = append(errs, fmt.Errorf("sleep must be >= 0, got %s", c.Sleep))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be > 0, got %s", c.Timeout))
	}
	switch strings.ToLower(c.WHOISClient) {
	case WHOISNative, WHOISLibrary:
	default:
		errs = append(errs, fmt.Errorf("unknown whois client %q (use native|library)", c.WHOISClient))
	}
	if c.Email {
		if strings.TrimSpace(c.SMTP.Server) == "" {
			errs = append(errs, errors.New("email enabled without an smtp server"))
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid smtp port %d", c.SMTP.Port))
		}
		if strings.TrimSpace(c.SMTP.To) == "" || strings.TrimSpace(c.SMTP.From) == "" {
			errs = append(errs, errors.New("email enabled without smtp from/to addresses"))
		}
	}
	for i, d := range c.Domains {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("domains[%d]: empty name", i))
		}
		if d.Days < 0 {
			errs = append(errs, fmt.Errorf("domains[%d]: days must be >= 0", i))
		}
	}
	return errors.Join(errs...)
}

// Recipients splits the To field on commas.
func (s SMTP) Recipients() []string {
	var out []string
	for _, p := range strings.Split(s.To, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
