package types

import "time"

// Snapshot is the persisted recovery data for a suspended tab.
// Keyed by a hash of URL; the URL itself remains the navigation target.
type Snapshot struct {
	URL            string       `json:"url"`
	Title          string       `json:"title"`
	FavIconURL     string       `json:"favIconUrl,omitempty"`
	ScrollPosition ScrollOffset `json:"scrollPosition"`
	CapturedAt     time.Time    `json:"timestamp"`
}

// Age returns how old the snapshot is relative to now
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}
