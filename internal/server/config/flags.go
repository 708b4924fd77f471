package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/docseal/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-d string     PostgreSQL DSN
//	-s string     session credential secret
//	-t duration   session credential validity
//	-k string     KDC base URL
//	-x string     KDC API key
//	-p string     public parameters file
//	-m string     envelope storage ("db" or "s3")
//	-l string     log level
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// layers (-c) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-k", "-x", "-p", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidity, "t", config.TokenValidity, "session token validity")
	fs.StringVar(&config.KDCURL, "k", config.KDCURL, "KDC base URL")
	fs.StringVar(&config.KDCAPIKey, "x", config.KDCAPIKey, "KDC API key")
	fs.StringVar(&config.PublicParamsFile, "p", config.PublicParamsFile, "public parameters file")
	fs.StringVar(&config.EnvelopeStorage, "m", config.EnvelopeStorage, "envelope storage: db or s3")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
