package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/dome/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   server URL
//	-p string   REST API path prefix
//	-d string   local database path
//	-l string   interface language
//	-t int      request timeout in seconds
//
// Only these flags are looked at; everything else in os.Args is filtered
// out with flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p", "-d", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server URL")
	fs.StringVar(&cfg.APIPrefix, "p", cfg.APIPrefix, "REST API path prefix")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.Language, "l", cfg.Language, "interface language")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
