package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLDeduplicationIgnoresTrackingParams(t *testing.T) {
	d := New()
	d.AddURL("https://example.com/video/123?utm_source=share&ref=abc")

	assert.True(t, d.IsDuplicateURL("https://example.com/video/123?utm_campaign=x"))
	assert.True(t, d.IsDuplicateURL("HTTPS://EXAMPLE.COM/video/123"))
	assert.False(t, d.IsDuplicateURL("https://example.com/video/456"))
}

func TestTitleRegistryIsIndependentOfURLRegistry(t *testing.T) {
	d := New()
	d.AddURL("https://example.com/a")

	assert.False(t, d.IsDuplicateTitle("My Great Video"))
	d.AddTitle("My Great Video!!")
	assert.True(t, d.IsDuplicateTitle("my great video"))

	assert.False(t, d.IsDuplicateURL("https://example.com/my-great-video"), "title completion must not gate a fresh URL")
}

func TestAddTitleIgnoresEmpty(t *testing.T) {
	d := New()
	d.AddTitle("")
	assert.False(t, d.IsDuplicateTitle(""))
}

func TestReset(t *testing.T) {
	d := New()
	d.AddURL("https://example.com/a")
	d.AddTitle("hello")
	d.Reset()
	assert.False(t, d.IsDuplicateURL("https://example.com/a"))
	assert.False(t, d.IsDuplicateTitle("hello"))
}
