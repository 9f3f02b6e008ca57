package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	lingobar "lingobar/internal/app"
)

func main() {
	app := newCLI(os.Stdout, func(ctx context.Context) (*lingobar.Application, error) {
		return lingobar.NewApplication(ctx)
	})

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		code := 1
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			code = exit.ExitCode()
			fmt.Fprintln(os.Stderr, exit.Error())
		} else {
			slog.Error("Command failed", slog.String("error", err.Error()))
		}
		os.Exit(code)
	}
}
