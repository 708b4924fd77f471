// Package cli is the docseal command-line client: account commands, and the
// send/open pipelines that sign, encrypt, decrypt and verify documents on
// the user's machine.
package cli

import (
	"bufio"
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/dmitrijs2005/docseal/internal/client/api"
	"github.com/dmitrijs2005/docseal/internal/client/config"
	"github.com/dmitrijs2005/docseal/internal/engine"
	"github.com/dmitrijs2005/docseal/internal/engine/bls"
	"github.com/dmitrijs2005/docseal/internal/flagx"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/urfave/cli/v2"
)

type App struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	env    *flagx.Env

	now       func() time.Time
	newEngine func() engine.Engine

	cfg    *config.Config
	client *api.Client
	logger logging.Logger
}

// New creates a client reading prompts from in. env supplies DOCSEAL_*
// overrides.
func New(in io.Reader, out, errOut io.Writer, env *flagx.Env) *App {
	return &App{
		in:        bufio.NewReader(in),
		out:       out,
		errOut:    errOut,
		env:       env,
		now:       time.Now,
		newEngine: func() engine.Engine { return bls.New(rand.Reader) },
		logger:    logging.Discard(),
	}
}

// Run parses args (args[0] is the program name) and executes the command.
func (a *App) Run(ctx context.Context, args []string) error {
	return a.command().RunContext(ctx, args)
}

func (a *App) command() *cli.App {
	return &cli.App{
		Name:      "docseal",
		Usage:     "Exchange signed, encrypted documents by email identity",
		Writer:    a.out,
		ErrWriter: a.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "JSON config file",
				EnvVars: []string{flagx.EnvPrefix + "CLIENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "main service base URL",
			},
			&cli.StringFlag{
				Name:  "session-file",
				Usage: "where the login session is kept",
			},
			&cli.StringFlag{
				Name:  "params-file",
				Usage: "local copy of the public parameters",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			a.registerCommand(),
			a.verifyCommand(),
			a.loginCommand(),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.paramsCommand(),
			a.sendCommand(),
			a.inboxCommand(),
			a.openCommand(),
		},
	}
}

// setup resolves the configuration once global flags are parsed.
func (a *App) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), a.env)
	if err != nil {
		return err
	}

	if c.IsSet("server") {
		cfg.ServerURL = c.String("server")
	}
	if c.IsSet("session-file") {
		cfg.SessionFile = c.String("session-file")
	}
	if c.IsSet("params-file") {
		cfg.ParamsFile = c.String("params-file")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.client = api.New(cfg.ServerURL, api.WithTimeout(cfg.Timeout))
	a.logger = logging.NewJSONLogger(a.errOut, cfg.LogLevel).With("module", "client")
	return nil
}
