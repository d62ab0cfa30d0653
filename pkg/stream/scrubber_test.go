package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const marker = "```widget-data"

func collect(s *Scrubber, fragments []string) string {
	var out strings.Builder
	for _, f := range fragments {
		out.WriteString(s.Feed(f))
	}
	out.WriteString(s.Flush())
	return out.String()
}

func TestScrubberPassThrough(t *testing.T) {
	s := NewScrubber(marker)
	got := collect(s, []string{"Hello ", "there, ", "how are you?"})
	assert.Equal(t, "Hello there, how are you?", got)
	assert.False(t, s.Suppressed())
	assert.Empty(t, s.Hidden())
}

func TestScrubberSuppressesFromMarker(t *testing.T) {
	s := NewScrubber(marker)
	got := collect(s, []string{
		"Logged your lunch!\n\n",
		"```widget-data\n{\"op\":\"add\"}\n```",
	})
	assert.Equal(t, "Logged your lunch!\n\n", got)
	assert.True(t, s.Suppressed())
	assert.Contains(t, s.Hidden(), `{"op":"add"}`)
}

func TestScrubberMarkerSplitAcrossFragments(t *testing.T) {
	s := NewScrubber(marker)
	got := collect(s, []string{
		"Done! ",
		"``",
		"`widget",
		"-data\n{\"x\":1}",
	})
	assert.Equal(t, "Done! ", got)
	assert.True(t, s.Suppressed())
	assert.Contains(t, s.Hidden(), `{"x":1}`)
}

func TestScrubberFalseAlarmPrefixFlushed(t *testing.T) {
	// A fragment ending in backticks that never becomes the marker must
	// still be delivered once the stream ends.
	s := NewScrubber(marker)
	got := collect(s, []string{"Use ``", "`go fmt``` to format"})
	assert.Equal(t, "Use ```go fmt``` to format", got)
	assert.False(t, s.Suppressed())
}

func TestScrubberTrailingPartialMarkerAtEnd(t *testing.T) {
	s := NewScrubber(marker)
	got := collect(s, []string{"text ``"})
	assert.Equal(t, "text ``", got)
}

func TestScrubberTokenByToken(t *testing.T) {
	s := NewScrubber(marker)
	input := "Sure.\n```widget-data\n{\"items\":[]}\n"
	var out strings.Builder
	for _, r := range input {
		out.WriteString(s.Feed(string(r)))
	}
	out.WriteString(s.Flush())
	assert.Equal(t, "Sure.\n", out.String())
	assert.True(t, s.Suppressed())
	assert.Contains(t, s.Hidden(), `{"items":[]}`)
}
