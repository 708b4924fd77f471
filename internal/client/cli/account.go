package cli

import (
	"fmt"

	"github.com/dmitrijs2005/docseal/internal/client/api"
	"github.com/dmitrijs2005/docseal/internal/client/session"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/identity"
	"github.com/urfave/cli/v2"
)

func emailFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "account email"}
}

// text returns the flag value, prompting for it when the flag is empty.
func (a *App) text(c *cli.Context, flag, prompt string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}
	return GetSimpleText(a.in, prompt, a.out)
}

func (a *App) registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Start a registration; a one-time code is mailed to you",
		Flags: []cli.Flag{
			emailFlag(),
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "display name"},
		},
		Action: func(c *cli.Context) error {
			email, err := a.text(c, "email", "Enter email")
			if err != nil {
				return err
			}
			password, err := GetPassword(a.in, "Enter password", a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			msg, err := a.client.Register(c.Context, api.RegisterRequest{
				Name:     c.String("name"),
				Email:    identity.Normalize(email),
				Password: string(password),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, msg)
			return nil
		},
	}
}

func (a *App) verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Complete a registration with the mailed code",
		Flags: []cli.Flag{
			emailFlag(),
			&cli.StringFlag{Name: "code", Usage: "one-time code"},
		},
		Action: func(c *cli.Context) error {
			email, err := a.text(c, "email", "Enter email")
			if err != nil {
				return err
			}
			code, err := a.text(c, "code", "Enter the code from the email")
			if err != nil {
				return err
			}

			msg, err := a.client.Verify(c.Context, api.VerifyRequest{Email: identity.Normalize(email), OTP: code})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, msg)
			return nil
		},
	}
}

func (a *App) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and keep the session for later commands",
		Flags: []cli.Flag{emailFlag()},
		Action: func(c *cli.Context) error {
			email, err := a.text(c, "email", "Enter email")
			if err != nil {
				return err
			}
			password, err := GetPassword(a.in, "Enter password", a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			s, err := a.client.Login(c.Context, api.LoginRequest{Email: identity.Normalize(email), Password: string(password)})
			if err != nil {
				return err
			}
			if err := session.Save(a.cfg.SessionFile, s); err != nil {
				return err
			}

			a.logger.Info(c.Context, "logged in", "email", s.Email)
			fmt.Fprintf(a.out, "Logged in as %s\n", s.Email)
			return nil
		},
	}
}

func (a *App) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the saved session",
		Action: func(c *cli.Context) error {
			if err := session.Clear(a.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in identity",
		Action: func(c *cli.Context) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (session expires %s)\n", s.Email, s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func (a *App) session() (*session.Session, error) {
	return session.Load(a.cfg.SessionFile, a.now())
}
