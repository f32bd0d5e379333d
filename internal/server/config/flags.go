package config

import (
	"flag"
	"time"

	"github.com/weightlog/weightlog/internal/flagx"
)

// parseFlags applies command-line overrides.
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-g string   gRPC health bind address
//	-H string   database host
//	-P int      database port
//	-n string   database name
//	-k string   directory holding the key files
//	-t int      access token validity, minutes
//	-l string   log level
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-H", "-P", "-n", "-k", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run the gRPC health service")
	fs.StringVar(&config.DatabaseHost, "H", config.DatabaseHost, "database host")
	fs.IntVar(&config.DatabasePort, "P", config.DatabasePort, "database port")
	fs.StringVar(&config.DatabaseName, "n", config.DatabaseName, "database name")
	fs.StringVar(&config.KeysDir, "k", config.KeysDir, "key files directory")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	validity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*validity) * time.Minute
}
