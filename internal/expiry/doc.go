// Package expiry extracts the registrar and expiration date from raw WHOIS
// text and evaluates how close that date is.
//
// Registries disagree on field names and date formats, so expiration labels
// live in an ordered table of rules, each with its own parse strategy. The
// first line that matches any rule wins.
package expiry
