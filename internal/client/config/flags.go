package config

import (
	"flag"
	"os"
	"time"

	"github.com/taskvault/taskvault/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line
// flags.
//
// Supported flags:
//
//	-a string   record server base URL (e.g., "http://127.0.0.1:8080")
//	-f string   local database file path
//	-p int      poll interval, seconds
//
// os.Args is first filtered to only the flags handled here via
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerAddr, "a", config.ServerAddr, "record server base URL")
	fs.StringVar(&config.DatabasePath, "f", config.DatabasePath, "local database file")

	pollInterval := fs.Int("p", int(config.PollInterval.Seconds()), "poll interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PollInterval = time.Duration(*pollInterval) * time.Second
}
