package types

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// TabID is the host-assigned identity of a tab. Stable for the tab's lifetime.
type TabID int

// String returns the decimal form used in logs and URLs
func (id TabID) String() string { return strconv.Itoa(int(id)) }

// ParseTabID parses the decimal form produced by String
func ParseTabID(s string) (TabID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return TabID(n), nil
}

// Tab is the last-known attributes of a host tab, snapshotted at scan time.
// The host owns the tab; this is a read-only copy.
type Tab struct {
	ID           TabID     `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	FavIconURL   string    `json:"favIconUrl,omitempty"`
	Pinned       bool      `json:"pinned"`
	Audible      bool      `json:"audible"`
	Discarded    bool      `json:"discarded"`
	Active       bool      `json:"active"` // foreground tab of its window
	LastAccessed time.Time `json:"lastAccessed,omitempty"`
}

// tabWire mirrors Tab on the wire with a lenient lastAccessed
type tabWire struct {
	ID           TabID      `json:"id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	FavIconURL   string     `json:"favIconUrl,omitempty"`
	Pinned       bool       `json:"pinned"`
	Audible      bool       `json:"audible"`
	Discarded    bool       `json:"discarded"`
	Active       bool       `json:"active"`
	LastAccessed accessTime `json:"lastAccessed,omitempty"`
}

// UnmarshalJSON accepts lastAccessed either as an RFC 3339 string or as
// milliseconds since the epoch, the form browsers report it in.
func (t *Tab) UnmarshalJSON(data []byte) error {
	var w tabWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Tab{
		ID:           w.ID,
		URL:          w.URL,
		Title:        w.Title,
		FavIconURL:   w.FavIconURL,
		Pinned:       w.Pinned,
		Audible:      w.Audible,
		Discarded:    w.Discarded,
		Active:       w.Active,
		LastAccessed: time.Time(w.LastAccessed),
	}
	return nil
}

type accessTime time.Time

func (a *accessTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = accessTime{}
	case data[0] == '"':
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = accessTime{}
			return nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("lastAccessed: %w", err)
		}
		*a = accessTime(ts)
	default:
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("lastAccessed: %w", err)
		}
		if ms <= 0 {
			*a = accessTime{}
			return nil
		}
		*a = accessTime(time.UnixMicro(int64(ms * 1000)))
	}
	return nil
}

// ScrollOffset is a page scroll position in CSS pixels
type ScrollOffset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsZero reports whether the offset is the page origin
func (s ScrollOffset) IsZero() bool {
	return s.X == 0 && s.Y == 0
}

// SafetyReport is the content script's answer to a safety check
type SafetyReport struct {
	HasFormData    bool `json:"hasFormData"`
	HasActiveMedia bool `json:"hasActiveMedia"`
	IsLoading      bool `json:"isLoading"`
}

// MemoryInfo is the host-wide memory capacity report
type MemoryInfo struct {
	Capacity          uint64 `json:"capacity"`
	AvailableCapacity uint64 `json:"availableCapacity"`
}
