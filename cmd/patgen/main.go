package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reusee/dscope"
	"github.com/reusee/patgen/cmds"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
	"github.com/reusee/patgen/metrics"
	"github.com/reusee/patgen/modes"
	"github.com/reusee/patgen/storages"
	"github.com/reusee/patgen/vars"
)

var (
	metricsAddrFlag = cmds.Var[string]("-metrics", "serve prometheus metrics on the address")
	devFlag         = cmds.Switch("-dev", "development mode, unseeded generation repeats across runs")
)

func main() {
	if err := cmds.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cmds.GlobalExecutor.PrintUsage()
		os.Exit(2)
	}
	if len(actions) == 0 {
		cmds.GlobalExecutor.PrintUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := modes.ForProduction()
	if *devFlag {
		mode = modes.ForDevelopment()
	}
	scope := dscope.New(
		new(Module),
		mode,
	)

	var err error
	scope.Call(func(
		loader configs.Loader,
		logger logs.Logger,
		opener *storages.Opener,
	) {
		if err = loader.Check(); err != nil {
			return
		}

		if addr := vars.FirstNonZero(
			*metricsAddrFlag,
			configs.First[string](loader, "metrics.addr"),
		); addr != "" {
			go func() {
				if err := metrics.Serve(ctx, addr); err != nil {
					logger.Error("serve metrics", "addr", addr, "error", err)
				}
			}()
			logger.Info("serve metrics", "addr", addr)
		}

		defer func() {
			if e := opener.Close(); e != nil {
				logger.Warn("close store", "error", e)
			}
		}()

		for _, action := range actions {
			if err = action(ctx, scope); err != nil {
				return
			}
		}
	})

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
