package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

func splitArgs(args []string) ([]string, string, []string) {
	return flagx.SplitSubcommand(args, GlobalFlags)
}

// parseFlags reads the global short flags:
//
//	-a string   address and port of the server
//	-f string   session file
//	-w int      request timeout (in seconds)
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SessionFile, "f", cfg.SessionFile, "session file")
	timeout := fs.Int("w", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-f", "-w"})); err != nil {
		return err
	}

	if isSet(fs, "w") {
		cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
