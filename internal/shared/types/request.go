package types

// RestoreBody is the JSON body of a restore call. An empty URL restores
// the location recorded in the tab's placeholder.
type RestoreBody struct {
	URL string `json:"url"`
}

// ExemptionBody is the JSON body of an add-exemption call.
// Domain may be a bare domain or a full URL.
type ExemptionBody struct {
	Domain string `json:"domain" binding:"required"`
}

// DomainRuleBody is one per-domain timeout override on the wire
type DomainRuleBody struct {
	Domain  string `json:"domain"`
	Minutes int    `json:"minutes"`
}

// SettingsBody is the wire form of the settings blob.
// GlobalTimeout is in milliseconds. On update, a nil field is left unchanged;
// an empty domainRules array clears the rules.
type SettingsBody struct {
	GlobalTimeout *int64           `json:"globalTimeout,omitempty"`
	DomainRules   []DomainRuleBody `json:"domainRules,omitempty"`
}
