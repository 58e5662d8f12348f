package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expirecheck.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, 10000, c.Days)
	require.Equal(t, 60*time.Second, c.Sleep)
	require.Equal(t, "localhost:25", c.SMTP.Addr())
	require.Equal(t, []string{"root"}, c.SMTP.Recipients())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
days: 45
sleep: 5s
email: true
smtp:
  server: mail.example.com
  port: 587
  to: ops@example.com, oncall@example.com
domains:
  - name: example.com
    days: 30
  - name: example.org
`)

	c, err := Load(path, Default())
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	require.Equal(t, 45, c.Days)
	require.Equal(t, 5*time.Second, c.Sleep)
	require.Equal(t, 8*time.Second, c.Timeout)
	require.Equal(t, "mail.example.com:587", c.SMTP.Addr())
	require.Equal(t, "root", c.SMTP.From)
	require.Equal(t, []string{"ops@example.com", "oncall@example.com"}, c.SMTP.Recipients())
	require.Equal(t, []Domain{{Name: "example.com", Days: 30}, {Name: "example.org"}}, c.Domains)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"), Default())
	require.Error(t, err)

	_, err = Load(writeFile(t, "days: [1, 2"), Default())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Days = -1
	c.Sleep = -time.Second
	c.WHOISClient = "rdap"
	c.Email = true
	c.SMTP.Port = 0
	c.SMTP.To = " "
	c.Domains = []Domain{{Name: ""}}

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"days must be", "sleep must be", "unknown whois client", "invalid smtp port", "from/to", "empty name"} {
		require.ErrorContains(t, err, want)
	}
}
