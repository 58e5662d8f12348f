package expiry

import (
	"errors"
	"strings"

	whoisparser "github.com/likexian/whois-parser"
)

const fallbackLabel = "whois-parser"

// fallback hands the response to whois-parser, which knows many registry
// layouts the rule table does not. Its date strings still go through Permissive.
func fallback(text, registrar string) (Record, error) {
	info, err := whoisparser.Parse(text)
	if err != nil {
		return Record{}, &ParseError{Label: fallbackLabel, Err: errors.Join(ErrNoExpiration, err)}
	}
	if info.Domain == nil || strings.TrimSpace(info.Domain.ExpirationDate) == "" {
		return Record{}, &ParseError{Label: fallbackLabel, Err: ErrNoExpiration}
	}

	value := strings.TrimSpace(info.Domain.ExpirationDate)
	rec := Record{Registrar: registrar, Label: fallbackLabel}
	if info.Domain.ExpirationDateInTime != nil {
		rec.Expires = info.Domain.ExpirationDateInTime.UTC()
	} else {
		t, err := Permissive(value)
		if err != nil {
			return Record{}, &ParseError{Label: fallbackLabel, Value: value, Err: errors.Join(ErrBadDate, err)}
		}
		rec.Expires = t
	}

	if registrar == UnknownRegistrar && info.Registrar != nil && strings.TrimSpace(info.Registrar.Name) != "" {
		rec.Registrar = strings.TrimSpace(info.Registrar.Name)
	}
	return rec, nil
}
