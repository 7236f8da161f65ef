package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// promptIfEmpty asks for *v unless a flag already provided it.
func (a *App) promptIfEmpty(v *string, prompt string) error {
	if *v != "" {
		return nil
	}
	s, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	req := &pb.RegisterRequest{}

	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&req.FullName, "name", "", "full name")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Username, "username", "", "user name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(&req.FullName, "Enter full name"); err != nil {
		return err
	}
	if err := a.promptIfEmpty(&req.Email, "Enter email"); err != nil {
		return err
	}
	if err := a.promptIfEmpty(&req.Username, "Enter user name"); err != nil {
		return err
	}

	var err error
	if req.Password, err = GetPassword("Enter password", a.out); err != nil {
		return err
	}
	if req.ConfirmPassword, err = GetPassword("Confirm password", a.out); err != nil {
		return err
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.Register(cctx, req)
	if err != nil {
		return err
	}
	if err := a.saveSession(resp); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s\n", resp.User.GetUsername())
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	var email string

	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&email, "email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(&email, "Enter email"); err != nil {
		return err
	}
	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.Login(cctx, email, password)
	if err != nil {
		return err
	}
	if err := a.saveSession(resp); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", resp.User.GetUsername())
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	sess, err := a.sessions.Load()
	if err != nil {
		return err
	}

	resp, err := a.refreshSession(ctx, sess)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Session refreshed, access token valid until %s\n",
		time.Unix(resp.ExpiresAt, 0).UTC().Format(time.RFC3339))
	return nil
}

func (a *App) logout(ctx context.Context) error {
	sess, err := a.sessions.Load()
	if err != nil {
		return err
	}

	access := sess.AccessToken
	if sess.AccessExpired(a.now()) {
		resp, err := a.refreshSession(ctx, sess)
		if err != nil {
			return err
		}
		access = resp.AccessToken
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := a.api.Logout(cctx, access); err != nil {
		return err
	}
	if err := a.sessions.Clear(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) whoami() error {
	sess, err := a.sessions.Load()
	if err != nil {
		return err
	}

	state := "valid"
	if sess.AccessExpired(a.now()) {
		state = "expired, will be refreshed"
	}
	fmt.Fprintf(a.out, "%s <%s>\nroles: %s\naccess token: %s until %s\n",
		sess.UserName, sess.Email, strings.Join(sess.Roles, ", "),
		state, sess.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (a *App) ping(ctx context.Context) error {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := a.api.Ping(cctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
