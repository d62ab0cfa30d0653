package stream

import "strings"

// Scrubber filters a token stream so the hidden data block an assistant
// reply may carry never reaches the client. Everything from the marker to
// the end of the stream is captured instead of emitted, and a marker split
// across fragment boundaries is still caught.
type Scrubber struct {
	marker      string
	pending     strings.Builder
	hidden      strings.Builder
	suppressing bool
}

func NewScrubber(marker string) *Scrubber {
	return &Scrubber{marker: marker}
}

// Feed consumes one stream fragment and returns the part safe to emit.
func (s *Scrubber) Feed(fragment string) string {
	if s.suppressing {
		s.hidden.WriteString(fragment)
		return ""
	}

	s.pending.WriteString(fragment)
	buf := s.pending.String()

	if idx := strings.Index(buf, s.marker); idx >= 0 {
		s.suppressing = true
		s.hidden.WriteString(buf[idx+len(s.marker):])
		s.pending.Reset()
		return buf[:idx]
	}

	// Hold back any tail that could be the start of a split marker.
	hold := 0
	for n := min(len(s.marker)-1, len(buf)); n > 0; n-- {
		if strings.HasSuffix(buf, s.marker[:n]) {
			hold = n
			break
		}
	}

	visible := buf[:len(buf)-hold]
	s.pending.Reset()
	s.pending.WriteString(buf[len(buf)-hold:])
	return visible
}

// Flush releases any held-back text once the stream has ended.
func (s *Scrubber) Flush() string {
	if s.suppressing {
		return ""
	}
	out := s.pending.String()
	s.pending.Reset()
	return out
}

// Suppressed reports whether the marker was seen.
func (s *Scrubber) Suppressed() bool {
	return s.suppressing
}

// Hidden returns the captured text that followed the marker.
func (s *Scrubber) Hidden() string {
	return s.hidden.String()
}
