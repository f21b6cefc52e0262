package rands

import (
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/modes"
)

type Module struct {
	dscope.Module
}

// NewSource returns the stream for one call. An empty seed asks for a
// fresh stream; in development mode that stream is fixed so runs repeat.
type NewSource func(seed string) Source

const developmentSeed = "patgen-development"

func (Module) NewSource(
	mode modes.Mode,
) NewSource {
	return func(seed string) Source {
		if seed != "" {
			return FromString(seed)
		}
		if mode == modes.ModeDevelopment {
			return FromString(developmentSeed)
		}
		return Random()
	}
}
