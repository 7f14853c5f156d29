package collector

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestShouldIgnoreURL(t *testing.T) {
	assert.True(t, shouldIgnoreURL("chrome://settings"))
	assert.True(t, shouldIgnoreURL("about:blank"))
	assert.True(t, shouldIgnoreURL("file:///etc/passwd"))
	assert.False(t, shouldIgnoreURL("https://example.com"))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", extractDomain("https://example.com/path?query=1"))
	assert.Equal(t, "", extractDomain("::not a url::"))
}

func TestBrowser_Event_UsesTitleOrDomainInDescription(t *testing.T) {
	b := NewBrowser("", "", 0, zerolog.Nop())
	withTitle := b.event(browserVisit{url: "https://example.com/page", title: "Example Page", browser: "chrome"})
	assert.Contains(t, withTitle.Description, "Example Page")

	noTitle := b.event(browserVisit{url: "https://example.com/page", title: "", browser: "chrome"})
	assert.Contains(t, noTitle.Description, "example.com")
}
