package llm

import (
	"fmt"
	"strings"
)

// Mode is one way of invoking a backend.
type Mode uint8

// Invocation modes.
const (
	ModeBlocking Mode = 1 << iota
	ModeNonBlocking
	ModeStream
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeNonBlocking:
		return "nonblocking"
	case ModeStream:
		return "stream"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Capabilities is the set of modes a backend supports.
type Capabilities uint8

// NewCapabilities builds a set from modes.
func NewCapabilities(modes ...Mode) Capabilities {
	var c Capabilities
	for _, m := range modes {
		c |= Capabilities(m)
	}
	return c
}

// AllModes is the capability set of a fully featured backend.
var AllModes = NewCapabilities(ModeBlocking, ModeNonBlocking, ModeStream)

// Has reports whether m is in the set.
func (c Capabilities) Has(m Mode) bool {
	return c&Capabilities(m) != 0
}

// Intersect returns the modes present in both sets.
func (c Capabilities) Intersect(other Capabilities) Capabilities {
	return c & other
}

// Modes lists the set in fallback order.
func (c Capabilities) Modes() []Mode {
	var modes []Mode
	for _, m := range []Mode{ModeStream, ModeNonBlocking, ModeBlocking} {
		if c.Has(m) {
			modes = append(modes, m)
		}
	}
	return modes
}

func (c Capabilities) String() string {
	modes := c.Modes()
	if len(modes) == 0 {
		return "none"
	}
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return strings.Join(names, ",")
}

// ParseCapabilities reads mode names such as "stream" or "blocking".
func ParseCapabilities(names []string) (Capabilities, error) {
	var c Capabilities
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "blocking", "sync":
			c |= Capabilities(ModeBlocking)
		case "nonblocking", "non-blocking", "async":
			c |= Capabilities(ModeNonBlocking)
		case "stream", "streaming":
			c |= Capabilities(ModeStream)
		case "":
		default:
			return 0, fmt.Errorf("unknown invocation mode %q", name)
		}
	}
	return c, nil
}
