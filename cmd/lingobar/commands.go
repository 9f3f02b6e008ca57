package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"lingobar/internal/app"
	"lingobar/internal/config"
	"lingobar/internal/keystore"
	"lingobar/internal/secrets"
	"lingobar/internal/trial"
	"lingobar/pkg/contracts"
)

// builder constructs the application for one command invocation.
type builder func(ctx context.Context) (*app.Application, error)

// extraCommands is extended by build-tagged files.
var extraCommands []func(build builder, out io.Writer) *cli.Command

var flagConfig = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to a YAML configuration file",
	EnvVars: []string{config.EnvPrefix + "_CONFIG"},
}

var flagJSON = &cli.BoolFlag{
	Name:  "json",
	Usage: "Print machine-readable JSON",
}

func newCLI(out io.Writer, build builder) *cli.App {
	commands := []*cli.Command{
		statusCommand(build, out),
		recordUsageCommand(build, out),
		activateCommand(build, out),
		deactivateCommand(build, out),
		instanceIDCommand(build, out),
		secretsCommand(build, out),
		serveCommand(build),
		versionCommand(out),
	}
	for _, extra := range extraCommands {
		commands = append(commands, extra(build, out))
	}

	return &cli.App{
		Name:           "lingobar",
		Usage:          "Trial, license and API key agent for Lingobar",
		Version:        contracts.Version,
		DefaultCommand: "status",
		Writer:         out,
		// main maps exit codes itself.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags:          []cli.Flag{flagConfig},
		Before: func(cCtx *cli.Context) error {
			if path := cCtx.String(flagConfig.Name); path != "" {
				return os.Setenv(config.EnvPrefix+"_CONFIG", path)
			}
			return nil
		},
		Commands: commands,
	}
}

// withApp builds the application, runs fn and releases telemetry.
func withApp(cCtx *cli.Context, build builder, fn func(ctx context.Context, a *app.Application) error) error {
	ctx := cCtx.Context
	a, err := build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusCommand(build builder, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the trial or license state",
		Flags: []cli.Flag{flagJSON},
		Action: func(cCtx *cli.Context) error {
			return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
				if cCtx.Bool(flagJSON.Name) {
					return writeJSON(out, a.LicenseService.GetStatus(ctx))
				}
				status := a.Trial.Status(ctx)
				fmt.Fprintln(out, status.String())
				if status.State == trial.StateExpired {
					fmt.Fprintf(out, "reason: %s\n", status.Reason)
				}
				return nil
			})
		},
	}
}

func recordUsageCommand(build builder, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "record-usage",
		Usage: "Record that the app was used now",
		Action: func(cCtx *cli.Context) error {
			return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
				return a.Trial.RecordUsage(ctx)
			})
		},
	}
}

func activateCommand(build builder, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "activate",
		Usage:     "Activate a license key",
		ArgsUsage: "LICENSE_KEY",
		Action: func(cCtx *cli.Context) error {
			if cCtx.NArg() != 1 {
				return cli.Exit("usage: lingobar activate LICENSE_KEY", 2)
			}
			key := cCtx.Args().First()

			return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()

				fmt.Fprintln(out, "Activating license...")
				start := time.Now()
				select {
				case err := <-a.Trial.ActivateLicenseAsync(ctx, key):
					if err != nil {
						return cli.Exit(fmt.Sprintf("activation failed: %v", err), 1)
					}
				case <-ctx.Done():
					return cli.Exit("activation cancelled", 130)
				}
				fmt.Fprintf(out, "License activated in %s\n", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func deactivateCommand(build builder, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "deactivate",
		Usage: "Remove the stored license",
		Action: func(cCtx *cli.Context) error {
			return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
				if err := a.Trial.RemoveLicense(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "License removed")
				return nil
			})
		},
	}
}

func instanceIDCommand(build builder, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "instance-id",
		Usage: "Print the per-install instance identifier",
		Action: func(cCtx *cli.Context) error {
			return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
				id, err := a.Trial.InstanceID(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, id)
				return nil
			})
		},
	}
}

func secretsCommand(build builder, out io.Writer) *cli.Command {
	providerArg := func(cCtx *cli.Context, want int, usage string) (secrets.Provider, error) {
		if cCtx.NArg() != want {
			return "", cli.Exit("usage: lingobar secrets "+usage, 2)
		}
		return secrets.ParseProvider(cCtx.Args().First())
	}

	return &cli.Command{
		Name:  "secrets",
		Usage: "Manage translation provider API keys",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show which providers have a key",
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						configured := a.APIKeys.Configured()
						names := make([]string, 0, len(configured))
						for p := range configured {
							names = append(names, string(p))
						}
						sort.Strings(names)
						for _, name := range names {
							state := "not set"
							if configured[secrets.Provider(name)] {
								state = "set"
							}
							fmt.Fprintf(out, "%s\t%s\n", name, state)
						}
						return nil
					})
				},
			},
			{
				Name:      "set",
				Usage:     "Store an API key",
				ArgsUsage: "PROVIDER VALUE",
				Action: func(cCtx *cli.Context) error {
					p, err := providerArg(cCtx, 2, "set PROVIDER VALUE")
					if err != nil {
						return err
					}
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						return a.APIKeys.Set(p, cCtx.Args().Get(1))
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Print a stored API key",
				ArgsUsage: "PROVIDER",
				Action: func(cCtx *cli.Context) error {
					p, err := providerArg(cCtx, 1, "get PROVIDER")
					if err != nil {
						return err
					}
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						v, err := a.APIKeys.Get(p)
						if errors.Is(err, keystore.ErrNotFound) {
							return cli.Exit(fmt.Sprintf("no %s api key stored", p), 1)
						}
						if err != nil {
							return err
						}
						fmt.Fprintln(out, v)
						return nil
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a stored API key",
				ArgsUsage: "PROVIDER",
				Action: func(cCtx *cli.Context) error {
					p, err := providerArg(cCtx, 1, "delete PROVIDER")
					if err != nil {
						return err
					}
					return withApp(cCtx, build, func(ctx context.Context, a *app.Application) error {
						return a.APIKeys.Delete(p)
					})
				},
			},
		},
	}
}

func serveCommand(build builder) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the loopback agent API until interrupted",
		Action: func(cCtx *cli.Context) error {
			a, err := build(cCtx.Context)
			if err != nil {
				return err
			}
			return a.Run(cCtx.Context)
		},
	}
}

func versionCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(cCtx *cli.Context) error {
			fmt.Fprintln(out, contracts.GetFullVersionString())
			return nil
		},
	}
}
