package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags listed in the package documentation are considered, so
// other components may define their own.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-d", "-a", "-k", "-t", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataPath, "d", cfg.DataPath, "path of the local store")
	fs.StringVar(&cfg.RemoteAddr, "a", cfg.RemoteAddr, "address and port of the remote document store")
	fs.StringVar(&cfg.RemoteSecret, "k", cfg.RemoteSecret, "remote store shared secret")
	remoteTimeout := fs.Int("t", int(cfg.RemoteTimeout.Seconds()), "remote call timeout (in seconds)")
	fs.Int64Var(&cfg.StoreQuota, "q", cfg.StoreQuota, "local store quota in bytes")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t is whole seconds; leave finer values from other sources alone
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RemoteTimeout = time.Duration(*remoteTimeout) * time.Second
		}
	})
}
