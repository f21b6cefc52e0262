package modes

import (
	"testing"

	"github.com/reusee/dscope"
)

type Mode uint8

const (
	ModeProduction Mode = iota + 1
	ModeDevelopment
)

func (m Mode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeDevelopment:
		return "development"
	}
	return "unknown"
}

// Module provides the Mode of a scope, and the *testing.T when under test.
type Module struct {
	dscope.Module
	mode Mode
	t    *testing.T
}

func ForProduction() Module {
	return Module{
		mode: ModeProduction,
	}
}

// ForDevelopment makes unseeded generation repeat across runs.
func ForDevelopment() Module {
	return Module{
		mode: ModeDevelopment,
	}
}

func ForTest(t *testing.T) Module {
	return Module{
		mode: ModeDevelopment,
		t:    t,
	}
}

func (m Module) T() *testing.T {
	return m.t
}

func (m Module) Mode() Mode {
	return m.mode
}
