package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/docseal/internal/client/cli"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/flagx"
)

func main() {
	if err := flagx.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.New(os.Stdin, os.Stdout, os.Stderr, flagx.NewEnv(flagx.EnvPrefix))
	err := app.Run(ctx, os.Args)
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	stop()
	if errors.Is(err, common.ErrSignatureInvalid) {
		os.Exit(2)
	}
	os.Exit(1)
}
