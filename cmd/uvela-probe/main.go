// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Command uvela-probe spins up one or more independent VMs concurrently,
// each interning a batch of strings and populating a table, then reports
// every VM's metrics. It exists to exercise GlobalState end to end —
// allocation, interning, table growth, and an explicit full collection —
// the way a smoke-test CLI accompanies a library rather than as a user
// tool in its own right.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luavela-go/uvela-lib/state"
	"github.com/luavela-go/uvela-lib/value"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "uvela-probe: building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	app := &cli.App{
		Name:  "uvela-probe",
		Usage: "exercise a batch of independent uvela VMs concurrently",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "vms", Value: 4, Usage: "number of concurrent GlobalStates to run"},
			&cli.IntFlag{Name: "strings", Value: 2000, Usage: "strings interned per VM"},
			&cli.BoolFlag{Name: "seal", Value: false, Usage: "seal each VM's globals table after populating it"},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, sugar, c.Int("vms"), c.Int("strings"), c.Bool("seal"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		sugar.Errorw("uvela-probe failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.SugaredLogger, numVMs, numStrings int, seal bool) error {
	log.Infow("starting probe", "vms", numVMs, "strings_per_vm", numStrings, "seal", seal)

	g, _ := errgroup.WithContext(ctx)
	results := make([]state.Metrics, numVMs)

	for i := 0; i < numVMs; i++ {
		i := i
		g.Go(func() error {
			m, err := runOne(log, i, numStrings, seal)
			if err != nil {
				return fmt.Errorf("vm %d: %w", i, err)
			}
			results[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, m := range results {
		log.Infow("vm finished", "vm", i, "metrics", m.String())
	}
	return nil
}

func runOne(log *zap.SugaredLogger, id, numStrings int, seal bool) (state.Metrics, error) {
	gs := state.New(state.Options{})

	for i := 0; i < numStrings; i++ {
		s, err := gs.InternString(fmt.Sprintf("vm-%d-key-%d", id, i))
		if err != nil {
			return state.Metrics{}, err
		}
		if err := gs.Globals().Set(value.FromGC(value.TagString, s), value.Number(float64(i))); err != nil {
			return state.Metrics{}, err
		}
	}

	gs.FullGC()

	if seal {
		if _, err := gs.Seal(gs.Globals()); err != nil {
			log.Warnw("seal failed", "vm", id, "err", err)
		}
	}

	return gs.Metrics(), nil
}
