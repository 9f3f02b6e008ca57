//go:build debug

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v2"

	"lingobar/internal/app"
)

func init() {
	extraCommands = append(extraCommands, debugCommand)
}

func debugCommand(build builder, out io.Writer) *cli.Command {
	report := func(ctx context.Context, a *app.Application) {
		fmt.Fprintln(out, a.Trial.Status(ctx).String())
	}

	return &cli.Command{
		Name:   "debug",
		Usage:  "Rewrite the trial timeline (debug builds only)",
		Hidden: true,
		Subcommands: []*cli.Command{
			{
				Name:  "reset",
				Usage: "Restart the trial from now",
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						if err := a.Trial.ResetTrial(ctx); err != nil {
							return err
						}
						report(ctx, a)
						return nil
					})
				},
			},
			{
				Name:  "expire",
				Usage: "Move the trial start past the trial length",
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						if err := a.Trial.ExpireTrial(ctx); err != nil {
							return err
						}
						report(ctx, a)
						return nil
					})
				},
			},
			{
				Name:      "days",
				Usage:     "Set the remaining trial days",
				ArgsUsage: "N",
				Action: func(cCtx *cli.Context) error {
					n, err := strconv.Atoi(cCtx.Args().First())
					if cCtx.NArg() != 1 || err != nil {
						return cli.Exit("usage: lingobar debug days N", 2)
					}
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						if err := a.Trial.SetDaysRemaining(ctx, n); err != nil {
							return err
						}
						report(ctx, a)
						return nil
					})
				},
			},
		},
	}
}
