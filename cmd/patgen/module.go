package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/patgen/debugs"
	"github.com/reusee/patgen/genconfigs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/patterns"
	"github.com/reusee/patgen/rands"
	"github.com/reusee/patgen/sandbox"
	"github.com/reusee/patgen/solvers"
	"github.com/reusee/patgen/storages"
	"github.com/reusee/patgen/watches"
)

type Module struct {
	dscope.Module
	Logs     logs.Module
	Configs  genconfigs.Module
	Sandbox  sandbox.Module
	Solvers  solvers.Module
	Rands    rands.Module
	Storages storages.Module
	Patterns patterns.Module
	Watches  watches.Module
	Debugs   debugs.Module
}
