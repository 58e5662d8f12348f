package domain

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Example.COM", "example.com", false},
		{" https://Example.COM/ ", "example.com", false},
		{"example.com:443", "example.com", false},
		{"example.com.", "example.com", false},
		{"", "", true},
		{"localhost", "", true},
		{"foo..com", "", true},
		{"-bad.com", "", true},
		{"bad-.com", "", true},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Normalize(%q): expected error, got none (got=%q)", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize_RejectsInternationalized(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"bücher.de", "xn--bcher-kva.de"} {
		if got, err := Normalize(in); err == nil {
			t.Fatalf("Normalize(%q): expected error, got %q", in, got)
		}
	}
}

func TestReadEntries(t *testing.T) {
	t.Parallel()

	in := "# portfolio\nexample.com 30\n\nEXAMPLE.org   # default threshold\nhttps://example.net/ 0\n"
	got, err := ReadEntries(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	want := []Entry{
		{Domain: "example.com", Days: 30, HasDays: true, Line: 2},
		{Domain: "example.org", Line: 4},
		{Domain: "example.net", Days: 0, HasDays: true, Line: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadEntries_Malformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"example.com 30 extra\n",
		"example.com soon\n",
		"example.com -1\n",
		"localhost 30\n",
	}
	for _, in := range cases {
		if _, err := ReadEntries(strings.NewReader(in)); err == nil {
			t.Fatalf("ReadEntries(%q): expected error", in)
		} else if !strings.Contains(err.Error(), "line 1") {
			t.Fatalf("ReadEntries(%q): error %q does not name the line", in, err)
		}
	}
}

func TestReadLines_SkipsComments(t *testing.T) {
	t.Parallel()

	got, err := ReadLines(strings.NewReader("# watched\nexample.com\n\n  example.org  # renews in spring\n"))
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(got) != 2 || got[0] != "example.com" || got[1] != "example.org" {
		t.Fatalf("ReadLines=%q", got)
	}
}
