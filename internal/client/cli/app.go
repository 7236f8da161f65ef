// Package cli implements the gophauth command-line client: one subcommand per
// invocation, with the last token pair kept in a session file.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// API is the server surface the CLI needs; *client.GRPCClient implements it.
type API interface {
	Register(ctx context.Context, req *pb.RegisterRequest) (*pb.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*pb.AuthResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*pb.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Ping(ctx context.Context) error
}

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	api      API
	sessions *session.Store
	timeout  time.Duration
	reader   *bufio.Reader
	out      io.Writer
	now      func() time.Time
}

func NewApp(api API, sessions *session.Store, timeout time.Duration, in io.Reader, out io.Writer) *App {
	return &App{
		api:      api,
		sessions: sessions,
		timeout:  timeout,
		reader:   bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
}

const usage = `usage: gophauth [-a addr] [-f session-file] [-w seconds] [-c config.json] <command>

commands:
  register   create an account and log in
  login      log in; revokes every other session of the account
  refresh    exchange the stored token pair for a new one
  logout     revoke every session of the logged-in account
  whoami     show the stored session
  ping       check that the server is reachable
`

// Run executes one subcommand.
func (a *App) Run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "refresh":
		return a.refresh(ctx)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "ping":
		return a.ping(ctx)
	case "", "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *App) saveSession(resp *pb.AuthResponse) error {
	sess := &session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Unix(resp.ExpiresAt, 0).UTC(),
	}
	if u := resp.User; u != nil {
		sess.UserID, sess.UserName, sess.Email, sess.Roles = u.Id, u.Username, u.Email, u.Roles
	}
	return a.sessions.Save(sess)
}

// refreshSession rotates the stored pair. A rejected refresh token means the
// session is over, so the file is removed.
func (a *App) refreshSession(ctx context.Context, sess *session.Session) (*pb.AuthResponse, error) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.Refresh(cctx, sess.AccessToken, sess.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = a.sessions.Clear()
			return nil, fmt.Errorf("session expired, please log in again: %w", err)
		}
		return nil, err
	}
	if err := a.saveSession(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
