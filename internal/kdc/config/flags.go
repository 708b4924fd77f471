package config

import (
	"flag"
	"strings"

	"github.com/dmitrijs2005/docseal/internal/flagx"
)

// parseFlags applies command-line flags:
//
//	-a string   HTTP bind address
//	-s string   session credential secret (shared with the main service)
//	-m string   master secret file
//	-k string   comma-separated allowed server API keys
//	-l string   log level
func parseFlags(config *Config, argv []string) {
	args := flagx.FilterArgs(argv, []string{"-a", "-s", "-m", "-k", "-l"})

	fs := flag.NewFlagSet("kdc", flag.ContinueOnError)

	keys := strings.Join(config.AllowedServerKeys, ",")

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run the KDC")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session credential secret")
	fs.StringVar(&config.MasterFile, "m", config.MasterFile, "master secret file")
	fs.StringVar(&keys, "k", keys, "comma-separated allowed server API keys")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	config.AllowedServerKeys = flagx.SplitList(keys)
}
