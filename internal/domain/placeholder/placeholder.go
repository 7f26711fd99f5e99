// Package placeholder encodes a suspended tab's original location, title and
// icon into the placeholder page's own address, so the mapping survives a
// restart of the daemon even if the snapshot store is lost.
package placeholder

import (
	"errors"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
)

// DefaultBase is the placeholder page served by the extension
const DefaultBase = "chrome-extension://tabsuspender/suspended.html"

// Query parameter names
const (
	ParamURL     = "url"
	ParamTitle   = "title"
	ParamFavicon = "favicon"
)

// ErrNotPlaceholder is returned when parsing a location that is not a placeholder
var ErrNotPlaceholder = errors.New("not a placeholder location")

// Target is what a placeholder points back to
type Target struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl,omitempty"`
}

// Codec builds and parses placeholder locations under one base
type Codec struct {
	base string
}

// NewCodec returns a codec for base. An empty base uses DefaultBase.
func NewCodec(base string) Codec {
	if base == "" {
		base = DefaultBase
	}
	return Codec{base: base}
}

// Build returns the placeholder location for tab
func (c Codec) Build(tab types.Tab) string {
	q := url.Values{}
	q.Set(ParamURL, tab.URL)
	q.Set(ParamTitle, tab.Title)
	q.Set(ParamFavicon, tab.FavIconURL)
	return c.base + "?" + q.Encode()
}

// IsPlaceholder reports whether location is a placeholder under this base
func (c Codec) IsPlaceholder(location string) bool {
	if !strings.HasPrefix(location, c.base) {
		return false
	}
	rest := location[len(c.base):]
	return rest == "" || rest[0] == '?' || rest[0] == '#'
}

// Parse recovers the target of a placeholder location
func (c Codec) Parse(location string) (Target, error) {
	if !c.IsPlaceholder(location) {
		return Target{}, ErrNotPlaceholder
	}
	rest := strings.TrimPrefix(location, c.base)
	rest = strings.TrimPrefix(rest, "?")
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}

	q, err := url.ParseQuery(rest)
	if err != nil {
		return Target{}, err
	}
	target := Target{
		URL:        q.Get(ParamURL),
		Title:      q.Get(ParamTitle),
		FavIconURL: q.Get(ParamFavicon),
	}
	if target.URL == "" {
		return Target{}, ErrNotPlaceholder
	}
	return target, nil
}
