package placeholder

import (
	"testing"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	codec := NewCodec("")
	tab := types.Tab{
		URL:        "https://example.com/search?q=a&b=c#frag",
		Title:      "Results & more: 100%",
		FavIconURL: "https://example.com/icon.png",
	}

	location := codec.Build(tab)
	assert.True(t, codec.IsPlaceholder(location))
	assert.Contains(t, location, DefaultBase+"?")

	target, err := codec.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, Target{URL: tab.URL, Title: tab.Title, FavIconURL: tab.FavIconURL}, target)
}

func TestIsPlaceholder(t *testing.T) {
	codec := NewCodec("chrome-extension://abc/suspended.html")

	assert.True(t, codec.IsPlaceholder("chrome-extension://abc/suspended.html?url=x"))
	assert.True(t, codec.IsPlaceholder("chrome-extension://abc/suspended.html"))
	assert.False(t, codec.IsPlaceholder("chrome-extension://abc/suspended.html.bak"))
	assert.False(t, codec.IsPlaceholder("https://example.com"))
	assert.False(t, codec.IsPlaceholder(""))
}

func TestParseRejects(t *testing.T) {
	codec := NewCodec("")

	_, err := codec.Parse("https://example.com/?url=x")
	assert.ErrorIs(t, err, ErrNotPlaceholder)

	_, err = codec.Parse(DefaultBase + "?title=only")
	assert.ErrorIs(t, err, ErrNotPlaceholder)

	_, err = codec.Parse(DefaultBase + "?url=%zz")
	assert.Error(t, err)
}
