package policy

import (
	"net/url"
	"strings"
	"time"
)

// Rule overrides the idle timeout for a domain and its subdomains
type Rule struct {
	Domain  string
	Timeout time.Duration
}

// Policy is the layered configuration consulted for every tab in a scan
type Policy struct {
	GlobalTimeout time.Duration
	Rules         []Rule   // first match wins
	Exemptions    []string // never suspended
}

// Outcome classifies what the resolver decided for a location
type Outcome int

const (
	// OutcomeTimeout means the tab is subject to Decision.Timeout
	OutcomeTimeout Outcome = iota
	// OutcomeExempt means an exemption matched
	OutcomeExempt
	// OutcomeUnresolvable means no hostname could be derived from the location
	OutcomeUnresolvable
)

// String returns the outcome name used in logs
func (o Outcome) String() string {
	switch o {
	case OutcomeTimeout:
		return "timeout"
	case OutcomeExempt:
		return "exempt"
	case OutcomeUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// Decision is the resolver's answer for one location
type Decision struct {
	Outcome  Outcome
	Hostname string
	Timeout  time.Duration
	Match    string // exemption or rule domain that matched, empty for the global timeout
}

// privilegedPrefixes are internal schemes that are never suspended
var privilegedPrefixes = []string{
	"chrome:",
	"chrome-extension:",
	"about:",
	"edge:",
	"browser:",
}

// unrecommendedPrefixes are also refused by the recommendation view
var unrecommendedPrefixes = []string{
	"file://",
	"view-source:",
}

// IsPrivileged reports whether location is empty or uses an internal scheme
func IsPrivileged(location string) bool {
	if location == "" {
		return true
	}
	return hasAnyPrefix(location, privilegedPrefixes)
}

// IsRefusedForRecommendation extends IsPrivileged with local files and source views
func IsRefusedForRecommendation(location string) bool {
	return IsPrivileged(location) || hasAnyPrefix(location, unrecommendedPrefixes)
}

// hasAnyPrefix matches case-insensitively; schemes are not case-sensitive
func hasAnyPrefix(s string, prefixes []string) bool {
	s = strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Hostname returns the lowercased hostname of location, or false when the
// location cannot be parsed or has no host.
func Hostname(location string) (string, bool) {
	u, err := url.Parse(location)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

// MatchesDomain reports whether hostname equals domain or is a subdomain of it.
// Matching is case-sensitive; callers pass lowercased hostnames.
func MatchesDomain(hostname, domain string) bool {
	if domain == "" {
		return false
	}
	return hostname == domain || strings.HasSuffix(hostname, "."+domain)
}

// ExemptionApplies reports whether any entry of exempt matches hostname
func ExemptionApplies(hostname string, exempt []string) bool {
	_, ok := matchExemption(hostname, exempt)
	return ok
}

func matchExemption(hostname string, exempt []string) (string, bool) {
	for _, e := range exempt {
		if MatchesDomain(hostname, e) {
			return e, true
		}
	}
	return "", false
}

// ResolveTimeout returns the timeout of the first rule matching hostname,
// or global when none does.
func ResolveTimeout(hostname string, rules []Rule, global time.Duration) time.Duration {
	if r, ok := matchRule(hostname, rules); ok {
		return r.Timeout
	}
	return global
}

func matchRule(hostname string, rules []Rule) (Rule, bool) {
	for _, r := range rules {
		if MatchesDomain(hostname, r.Domain) {
			return r, true
		}
	}
	return Rule{}, false
}

// Resolve classifies location under p. Exemption is checked before any
// timeout logic.
func Resolve(location string, p Policy) Decision {
	host, ok := Hostname(location)
	if !ok {
		return Decision{Outcome: OutcomeUnresolvable}
	}

	if e, ok := matchExemption(host, p.Exemptions); ok {
		return Decision{Outcome: OutcomeExempt, Hostname: host, Match: e}
	}

	if r, ok := matchRule(host, p.Rules); ok {
		return Decision{Outcome: OutcomeTimeout, Hostname: host, Timeout: r.Timeout, Match: r.Domain}
	}
	return Decision{Outcome: OutcomeTimeout, Hostname: host, Timeout: p.GlobalTimeout}
}
