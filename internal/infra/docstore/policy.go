package docstore

import (
	"fmt"
	"strings"
	"time"
)

type Mode int

const (
	// Debounce: trailing edge, el timer se reinicia en cada Set.
	Debounce Mode = iota
	// Throttle: como mucho una escritura por período, sin importar la frecuencia de Set.
	Throttle
)

func (m Mode) String() string {
	if m == Throttle {
		return "throttle"
	}
	return "debounce"
}

type Policy struct {
	Mode     Mode
	Interval time.Duration
}

func DefaultPolicy() Policy { return Policy{Mode: Debounce, Interval: 10 * time.Second} }

func ParsePolicy(mode string, interval time.Duration) (Policy, error) {
	if interval <= 0 {
		return Policy{}, fmt.Errorf("flush interval must be positive, got %s", interval)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "debounce":
		return Policy{Mode: Debounce, Interval: interval}, nil
	case "throttle":
		return Policy{Mode: Throttle, Interval: interval}, nil
	default:
		return Policy{}, fmt.Errorf("unknown flush policy %q", mode)
	}
}

func (p Policy) String() string { return fmt.Sprintf("%s(%s)", p.Mode, p.Interval) }
