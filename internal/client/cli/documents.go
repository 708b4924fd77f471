package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/docseal/internal/client/envelope"
	"github.com/dmitrijs2005/docseal/internal/client/session"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/engine/bls"
	"github.com/dmitrijs2005/docseal/internal/filex"
	"github.com/dmitrijs2005/docseal/internal/identity"
	"github.com/urfave/cli/v2"
)

// publicParams returns the local parameters, fetching and caching them from
// the server the first time.
func (a *App) publicParams(ctx context.Context) ([]byte, error) {
	p, err := os.ReadFile(a.cfg.ParamsFile)
	if err == nil {
		if err := bls.ValidateParams(p); err != nil {
			return nil, fmt.Errorf("%s: %w", a.cfg.ParamsFile, err)
		}
		return p, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read params: %w", err)
	}
	return a.fetchParams(ctx, false)
}

func (a *App) fetchParams(ctx context.Context, overwrite bool) ([]byte, error) {
	p, err := a.client.Params(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch params: %w", err)
	}
	if err := bls.ValidateParams(p); err != nil {
		return nil, fmt.Errorf("server params: %w", err)
	}
	if err := filex.WriteNew(a.cfg.ParamsFile, p, 0o644, overwrite); err != nil {
		a.logger.Warn(ctx, "could not cache public parameters", "path", a.cfg.ParamsFile, "error", err)
	}
	return p, nil
}

func (a *App) paramsCommand() *cli.Command {
	return &cli.Command{
		Name:  "params",
		Usage: "Download the public parameters from the server",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "replace an existing local copy"},
		},
		Action: func(c *cli.Context) error {
			if _, err := os.Stat(a.cfg.ParamsFile); err == nil && !c.Bool("force") {
				return fmt.Errorf("%s: %w (use --force to replace)", a.cfg.ParamsFile, filex.ErrExists)
			}
			if _, err := a.fetchParams(c.Context, true); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Public parameters saved to %s\n", a.cfg.ParamsFile)
			return nil
		},
	}
}

// pipeline prepares what both directions need: the session, the caller's
// private key from the key relay and an orchestrator bound to the session.
func (a *App) pipeline(ctx context.Context) (*session.Session, []byte, *envelope.Orchestrator, error) {
	s, err := a.session()
	if err != nil {
		return nil, nil, nil, err
	}
	params, err := a.publicParams(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	key, err := a.client.PrivateKey(ctx, s)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("private key: %w", err)
	}

	o := envelope.New(a.newEngine(), params, a.client.Documents(s),
		envelope.WithLogger(a.logger),
		envelope.WithObserver(func(st envelope.State) {
			fmt.Fprintf(a.errOut, "... %s\n", st)
		}),
	)
	return s, key, o, nil
}

func (a *App) sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Sign a file, encrypt it to a recipient and upload it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Aliases: []string{"t"}, Usage: "recipient email", Required: true},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "file to send", Required: true},
		},
		Action: func(c *cli.Context) error {
			recipient := identity.Normalize(c.String("to"))
			if !identity.IsCanonical(recipient) {
				return common.NewValidationError("recipient is not a valid email")
			}

			path := c.String("file")
			message, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			defer common.WipeByteArray(message)

			_, key, o, err := a.pipeline(c.Context)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(key)

			id, err := o.Send(c.Context, key, recipient, filepath.Base(path), message)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Sent %s to %s (document %s)\n", filepath.Base(path), recipient, id)
			return nil
		},
	}
}

func (a *App) inboxCommand() *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "List documents sent to you",
		Action: func(c *cli.Context) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			docs, err := a.client.Received(c.Context, s)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(a.out, "No documents received yet.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tSENDER\tRECEIVED")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, envelope.HumanFileName(d.OriginalFileName, s.Email), d.SenderID, d.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func (a *App) openCommand() *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Download a document, decrypt it and verify the sender's signature",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "document id", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path (default: original name in the current directory)"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite the output file"},
		},
		Action: func(c *cli.Context) error {
			s, key, o, err := a.pipeline(c.Context)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(key)

			opened, err := o.Open(c.Context, key, c.String("id"))
			if errors.Is(err, common.ErrSignatureInvalid) {
				fmt.Fprintf(a.out, "SIGNATURE INVALID: %s claims to be from %s; contents withheld\n", envelope.HumanFileName(opened.FileName, s.Email), opened.SenderID)
				return err
			}
			if err != nil {
				return fmt.Errorf("could not open document: %w", err)
			}
			defer common.WipeByteArray(opened.Message)

			out := c.String("out")
			if out == "" {
				out = filepath.Base(envelope.HumanFileName(opened.FileName, s.Email))
			}
			if err := filex.WriteNew(out, opened.Message, 0o600, c.Bool("force")); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signature valid: from %s, saved to %s\n", opened.SenderID, out)
			return nil
		},
	}
}
