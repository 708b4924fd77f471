// Command ibesetup generates the engine master secret for the KDC and the
// public parameters the main service and clients share.
package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/docseal/internal/engine/bls"
	"github.com/dmitrijs2005/docseal/internal/filex"
	"github.com/urfave/cli/v2"
)

type setupOptions struct {
	masterPath string
	paramsPath string
	force      bool
}

func newApp(rnd io.Reader) *cli.App {
	var opts setupOptions

	return &cli.App{
		Name:  "ibesetup",
		Usage: "Generate the KDC master secret and public parameters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "master",
				Aliases:     []string{"m"},
				Value:       "ibe_master.bin",
				EnvVars:     []string{"DOCSEAL_KDC_MASTER_FILE"},
				Usage:       "where to write the master secret (keep private)",
				Destination: &opts.masterPath,
			},
			&cli.StringFlag{
				Name:        "params",
				Aliases:     []string{"p"},
				Value:       "ibe_params.bin",
				EnvVars:     []string{"DOCSEAL_PUBLIC_PARAMS_FILE"},
				Usage:       "where to write the public parameters",
				Destination: &opts.paramsPath,
			},
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "overwrite existing files",
				Destination: &opts.force,
			},
		},
		Action: func(c *cli.Context) error {
			if err := setup(rnd, opts); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "master secret written to %s\npublic parameters written to %s\n", opts.masterPath, opts.paramsPath)
			return nil
		},
	}
}

// setup writes a fresh master secret and its public parameters. Neither file
// is written if either target already exists and force is not set.
func setup(rnd io.Reader, opts setupOptions) error {
	if !opts.force {
		for _, p := range []string{opts.masterPath, opts.paramsPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s: %w (use --force to replace)", p, filex.ErrExists)
			}
		}
	}

	master, params, err := bls.Setup(rnd)
	if err != nil {
		return fmt.Errorf("engine setup: %w", err)
	}

	if err := filex.WriteNew(opts.masterPath, master, 0o600, opts.force); err != nil {
		return err
	}
	if err := filex.WriteNew(opts.paramsPath, params, 0o644, opts.force); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := newApp(rand.Reader).Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}
