package policy

import "time"

// DefaultGlobalTimeout applies when no rule matches and settings are absent or malformed
const DefaultGlobalTimeout = 5 * time.Minute

// Rule bounds
const (
	MinRuleMinutes     = 1
	MaxRuleMinutes     = 7 * 24 * 60
	MinGlobalTimeoutMs = int64(time.Minute / time.Millisecond)
)

var defaultExemptions = []string{
	"mail.google.com",
	"outlook.live.com",
	"outlook.office.com",
	"calendar.google.com",
	"meet.google.com",
	"zoom.us",
	"teams.microsoft.com",
	"slack.com",
	"discord.com",
	"music.youtube.com",
	"spotify.com",
	"netflix.com",
	"twitch.tv",
}

// DefaultExemptions returns a copy of the built-in exemption list
func DefaultExemptions() []string {
	out := make([]string, len(defaultExemptions))
	copy(out, defaultExemptions)
	return out
}

// Default returns the policy used when nothing is persisted
func Default() Policy {
	return Policy{
		GlobalTimeout: DefaultGlobalTimeout,
		Exemptions:    DefaultExemptions(),
	}
}
